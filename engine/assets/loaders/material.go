package loaders

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/spaghettifunk/texbind/engine/core"
	"github.com/spaghettifunk/texbind/engine/math"
	"github.com/spaghettifunk/texbind/engine/renderer/metadata"
)

type MaterialLoader struct{}

func (ml *MaterialLoader) Load(name string, data []byte, params interface{}) (*metadata.Resource, error) {
	mCfg, err := ParseAMT(data)
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", name, err)
	}
	return &metadata.Resource{
		Name:     mCfg.Name,
		FullPath: name,
		DataSize: uint64(len(data)),
		Data:     mCfg,
	}, nil
}

// ParseAMT reads the key = value material format:
//
//	name = brick_wall
//	diffuse_map = textures/brick.png
//	diffuse_scale = 4 4
//	normal_map = textures/brick_n.png
//	lightmap_map = lightmaps/atlas0.png
//	lightmap_offset_scale = 0.1 3.5
//	environment_map = https://cdn.example.com/sky.png
//
// Every slot accepts _map, _offset, _scale and _rotation (degrees).
func ParseAMT(data []byte) (*metadata.MaterialConfig, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	materialConfig := metadata.NewMaterialConfig("")

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		// Split key-value pairs by the first "=" sign
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			core.LogWarn("Skipping invalid line: %s", line)
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Parse each field based on the key
		switch key {
		case "name":
			materialConfig.Name = value
		case "diffuse_colour":
			v, err := parseFloats(value, 4)
			if err != nil {
				return nil, fmt.Errorf("invalid diffuse_colour: %w", err)
			}
			materialConfig.DiffuseColour = math.Vec4{X: v[0], Y: v[1], Z: v[2], W: v[3]}
		case "autorelease":
			autoRelease, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("invalid autorelease value: %s", value)
			}
			materialConfig.AutoRelease = autoRelease
		case "environment_usage":
			usage, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid environment_usage value: %s", value)
			}
			materialConfig.EnvironmentUsage = usage
		default:
			if err := parseMapKey(materialConfig, key, value); err != nil {
				return nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	// Perform validation
	if err := validateMaterial(materialConfig); err != nil {
		return nil, err
	}
	return materialConfig, nil
}

func parseMapKey(materialConfig *metadata.MaterialConfig, key, value string) error {
	slotName, field, ok := strings.Cut(key, "_")
	slot, known := metadata.MaterialSlotFromName(slotName)
	if !ok || !known {
		core.LogError("Unknown key '%s' found in file. Skipping...", key)
		return nil
	}

	m := materialConfig.Map(slot)
	switch field {
	case "map":
		m.URL = value
	case "offset":
		v, err := parseFloats(value, 2)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		m.Transform = m.Transform.SetOffset(math.NewVec2(v[0], v[1]))
	case "scale":
		v, err := parseFloats(value, 2)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		m.Transform = m.Transform.SetScale(math.NewVec2(v[0], v[1]))
	case "rotation":
		v, err := parseFloats(value, 1)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		m.Transform = m.Transform.SetRotation(math.DegToRad(v[0]))
	case "offset_scale":
		if slot != metadata.MaterialSlotLightmap {
			return fmt.Errorf("%s: offset_scale only applies to the lightmap slot", key)
		}
		v, err := parseFloats(value, 2)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		m.LightmapOffset, m.LightmapScale = v[0], v[1]
	default:
		core.LogError("Unknown key '%s' found in file. Skipping...", key)
	}
	return nil
}

func parseFloats(value string, count int) ([]float32, error) {
	fields := strings.Fields(value)
	if len(fields) != count {
		return nil, fmt.Errorf("expected %d values, got %d: %s", count, len(fields), value)
	}
	out := make([]float32, count)
	for i, v := range fields {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid value: %s", v)
		}
		out[i] = float32(f)
	}
	return out, nil
}

func validateMaterial(material *metadata.MaterialConfig) error {
	if material.Name == "" {
		return fmt.Errorf("material name is required")
	}

	// Check that DiffuseColour values are within [0.0, 1.0] range
	if !isValidVec4(material.DiffuseColour) {
		return fmt.Errorf("diffuse_colour values must be between 0.0 and 1.0")
	}

	// A slot configured with only a transform has nothing to sample.
	for slot, m := range material.Maps {
		if m.URL == "" {
			return fmt.Errorf("%s map has settings but no %s_map url", slot, slot)
		}
	}

	return nil
}

// Helper function to validate Vec4 fields (must be between 0.0 and 1.0)
func isValidVec4(v math.Vec4) bool {
	return inRange(v.X) && inRange(v.Y) && inRange(v.Z) && inRange(v.W)
}

// Check if a float32 value is within [0.0, 1.0]
func inRange(value float32) bool {
	return value >= 0.0 && value <= 1.0
}

func (ml *MaterialLoader) Unload(*metadata.Resource) error {
	return nil
}
