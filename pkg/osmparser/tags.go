package osmparser

import (
	"math"
	"strconv"
	"strings"

	"github.com/lintang-b-s/roadsnap/pkg"
	"github.com/lintang-b-s/roadsnap/pkg/datastructure"
	"github.com/paulmach/osm"
)

var (
	// https://wiki.openstreetmap.org/wiki/OSM_tags_for_routing/Telenav
	acceptedHighway = map[string]struct{}{
		"motorway":         struct{}{},
		"motorway_link":    struct{}{},
		"trunk":            struct{}{},
		"trunk_link":       struct{}{},
		"primary":          struct{}{},
		"primary_link":     struct{}{},
		"secondary":        struct{}{},
		"secondary_link":   struct{}{},
		"residential":      struct{}{},
		"residential_link": struct{}{},
		"service":          struct{}{},
		"tertiary":         struct{}{},
		"tertiary_link":    struct{}{},
		"road":             struct{}{},
		"track":            struct{}{},
		"unclassified":     struct{}{},
		"undefined":        struct{}{},
		"unknown":          struct{}{},
		"living_street":    struct{}{},
		"private":          struct{}{},
		"motorroad":        struct{}{},
	}
)

// applyTags. copies highway class, maxspeed, layer, bridge, tunnel and oneway tags onto road.
func applyTags(road *datastructure.Road, tags osm.Tags) {
	road.Code = pkg.GetHighwayType(tags.Find("highway"))
	road.MaxSpeed = parseMaxSpeed(tags.Find("maxspeed"))
	road.Layer = parseLayer(tags.Find("layer"))
	road.Bridge = isYes(tags.Find("bridge"))
	road.Tunnel = isYes(tags.Find("tunnel"))
	road.Direction = wayDirection(tags)
}

// parseMaxSpeed. maxspeed tag in km/h, 0 if absent or not numeric.
func parseMaxSpeed(value string) uint16 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	factor := 1.0
	switch {
	case strings.HasSuffix(value, "mph"):
		factor = 1.60934
		value = strings.TrimSuffix(value, "mph")
	case strings.HasSuffix(value, "km/h"):
		value = strings.TrimSuffix(value, "km/h")
	case strings.HasSuffix(value, "knots"):
		factor = 1.852
		value = strings.TrimSuffix(value, "knots")
	}

	speed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || speed <= 0 {
		return 0
	}
	return uint16(math.Min(math.Round(speed*factor), math.MaxUint16))
}

func parseLayer(value string) int16 {
	layer, err := strconv.ParseInt(strings.TrimSpace(value), 10, 16)
	if err != nil {
		return 0
	}
	return int16(layer)
}

func isYes(value string) bool {
	return value != "" && value != "no"
}

func isRestricted(value string) bool {
	if value == "no" || value == "restricted" {
		return true
	}
	return false
}

func getReversedOneWay(tags osm.Tags) (bool, bool, bool, bool) {
	vehicleForward := tags.Find("vehicle:forward")
	motorVehicleForward := tags.Find("motor_vehicle:forward")
	vehicleBackward := tags.Find("vehicle:backward")
	motorVehicleBackward := tags.Find("motor_vehicle:backward")
	return isRestricted(vehicleForward), isRestricted(motorVehicleForward), isRestricted(vehicleBackward), isRestricted(motorVehicleBackward)
}

// wayDirection. travel direction allowed along the way's node order.
func wayDirection(tags osm.Tags) datastructure.Direction {
	okvf, okmvf, okvb, okmvb := getReversedOneWay(tags)
	oneway := tags.Find("oneway")

	switch {
	case oneway == "-1" || oneway == "reverse" || okvf || okmvf:
		// forward travel restricted
		return datastructure.BACKWARD
	case oneway == "yes" || oneway == "true" || oneway == "1" || okvb || okmvb:
		return datastructure.FORWARD
	case oneway == "" && (tags.Find("junction") == "roundabout" || tags.Find("highway") == "motorway"):
		return datastructure.FORWARD
	}
	return datastructure.BIDIRECTIONAL
}
