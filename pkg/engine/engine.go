package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
	"github.com/lintang-b-s/roadsnap/pkg/engine/mapmatcher/segment"
	"github.com/lintang-b-s/roadsnap/pkg/spatialindex"
	"github.com/lintang-b-s/roadsnap/pkg/table"
	"go.uber.org/zap"
)

var ErrEmptyRoadNetwork = errors.New("road network has no roads")

/*
Engine. owns the road index used by the map matchers.

readers take a snapshot of the current index and keep using it for the whole request.
writers build a new index off to the side and publish it with one atomic swap, so a
running match never sees a half updated road network.
*/
type Engine struct {
	index atomic.Pointer[spatialindex.Rtree]
	// serializes writers
	mu  sync.Mutex
	cfg segment.Config
	log *zap.Logger
}

func NewEngine(roads []*datastructure.Road, cfg segment.Config, log *zap.Logger) (*Engine, error) {
	log.Info("Starting segment map matching engine...", zap.Int("roads", len(roads)))
	rt := spatialindex.NewRtree()
	if err := rt.BuildRoads(roads, log); err != nil {
		return nil, fmt.Errorf("build road index: %w", err)
	}

	e := &Engine{
		cfg: cfg,
		log: log,
	}
	e.index.Store(rt)
	return e, nil
}

// NewEngineFromFile. engine over the road table written by the preprocessor.
func NewEngineFromFile(roadsFilePath string, cfg segment.Config, log *zap.Logger) (*Engine, error) {
	log.Info("Reading road table from ", zap.String("roadsFilePath", roadsFilePath))
	roads, err := table.ReadRoadsFile(roadsFilePath)
	if err != nil {
		return nil, err
	}
	if len(roads) == 0 {
		return nil, fmt.Errorf("%s: %w", roadsFilePath, ErrEmptyRoadNetwork)
	}
	return NewEngine(roads, cfg, log)
}

// Snapshot. current index. must not be mutated by the caller.
func (e *Engine) Snapshot() *spatialindex.Rtree {
	return e.index.Load()
}

func (e *Engine) GetConfig() segment.Config {
	return e.cfg
}

// Matcher. segment matcher bound to the current snapshot.
func (e *Engine) Matcher() *segment.SegmentMatcher {
	return segment.NewSegmentMatcher(e.Snapshot(), e.cfg, e.log)
}

func (e *Engine) BatchMatcher(numWorkers int) *segment.BatchMatcher {
	return segment.NewBatchMatcher(e.Matcher(), numWorkers, e.log)
}

// ReplaceRoads. swaps in an index over roads.
func (e *Engine) ReplaceRoads(roads []*datastructure.Road) error {
	rt := spatialindex.NewRtree()
	if err := rt.BuildRoads(roads, e.log); err != nil {
		return fmt.Errorf("replace roads: %w", err)
	}

	e.mu.Lock()
	e.index.Store(rt)
	e.mu.Unlock()
	return nil
}

// InsertRoads. copies the current index, inserts roads and swaps. nothing is published on error.
func (e *Engine) InsertRoads(roads []*datastructure.Road) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.index.Load().Copy()
	for _, road := range roads {
		if err := next.Insert(road); err != nil {
			return fmt.Errorf("insert road %d: %w", road.ID, err)
		}
	}
	e.index.Store(next)
	e.log.Info("roads inserted.", zap.Int("inserted", len(roads)), zap.Int("roads", next.Len()))
	return nil
}

// RemoveRoads. rebuilds the index without ids and swaps. unknown ids are ignored.
func (e *Engine) RemoveRoads(ids []uint64) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	drop := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	current := e.index.Load()
	kept := make([]*datastructure.Road, 0, current.Len())
	for _, road := range current.Roads() {
		if _, ok := drop[road.ID]; ok {
			continue
		}
		kept = append(kept, road)
	}
	removed := current.Len() - len(kept)
	if removed == 0 {
		return 0, nil
	}

	next := spatialindex.NewRtree()
	if err := next.BuildRoads(kept, e.log); err != nil {
		return 0, fmt.Errorf("remove roads: %w", err)
	}
	e.index.Store(next)
	e.log.Info("roads removed.", zap.Int("removed", removed), zap.Int("roads", next.Len()))
	return removed, nil
}
