package table

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
)

// writeFile. bzip2 compressed file written by encode.
func writeFile(filename string, encode func(w io.Writer) error) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}

	w := bufio.NewWriter(bz)
	if err := encode(w); err != nil {
		bz.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		bz.Close()
		return err
	}
	if err := bz.Close(); err != nil {
		return fmt.Errorf("close bzip2 writer: %w", err)
	}
	return f.Sync()
}

func readFile(filename string, decode func(r io.Reader) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	bz, err := bzip2.NewReader(f, nil)
	if err != nil {
		return err
	}
	defer bz.Close()

	return decode(bufio.NewReader(bz))
}

// WriteRoadsFile. road table as a bzip2 compressed arrow ipc stream.
func WriteRoadsFile(filename string, roads []*datastructure.Road) error {
	return writeFile(filename, func(w io.Writer) error {
		return EncodeRoads(w, roads)
	})
}

func ReadRoadsFile(filename string) ([]*datastructure.Road, error) {
	var roads []*datastructure.Road
	err := readFile(filename, func(r io.Reader) error {
		var err error
		roads, err = DecodeRoads(r)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read roads file %s: %w", filename, err)
	}
	return roads, nil
}

func WriteTrajectoriesFile(filename string, trajectories []datastructure.Trajectory) error {
	return writeFile(filename, func(w io.Writer) error {
		return EncodeTrajectories(w, trajectories)
	})
}

func ReadTrajectoriesFile(filename string) ([]datastructure.Trajectory, error) {
	var trajectories []datastructure.Trajectory
	err := readFile(filename, func(r io.Reader) error {
		var err error
		trajectories, err = DecodeTrajectories(r)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read trajectories file %s: %w", filename, err)
	}
	return trajectories, nil
}
