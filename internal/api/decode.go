package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/miradorstack/incident-analyzer/internal/models"
	"github.com/miradorstack/incident-analyzer/internal/utils"
)

// Request field names.
const (
	fieldCPU              = "cpu"
	fieldMemory           = "memory"
	fieldError            = "error"
	fieldRecentDeployment = "recent_deployment"
	fieldIncidents        = "incidents"
)

const decodeOp = "decode incident"

// DecodeFields reads a JSON object from r, keeping numbers as json.Number.
func DecodeFields(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, utils.NewAppError(decodeOp, "request body is not a JSON object", err)
	}
	if fields == nil {
		return nil, utils.NewAppError(decodeOp, "request body is null", nil)
	}
	return fields, nil
}

// IncidentFromFields builds an incident from loosely typed fields. Missing fields
// default to zero values; cpu and memory are coerced to integers and
// recent_deployment to a boolean by truthiness.
func IncidentFromFields(fields map[string]any) (models.Incident, error) {
	var incident models.Incident

	if v, ok := fields[fieldCPU]; ok {
		cpu, err := coerceInt(fieldCPU, v)
		if err != nil {
			return models.Incident{}, err
		}
		incident.CPU = cpu
	}
	if v, ok := fields[fieldMemory]; ok {
		memory, err := coerceInt(fieldMemory, v)
		if err != nil {
			return models.Incident{}, err
		}
		incident.Memory = memory
	}
	if v, ok := fields[fieldError]; ok {
		incident.Error = coerceString(v)
	}
	if v, ok := fields[fieldRecentDeployment]; ok {
		incident.RecentDeployment = truthy(v)
	}
	return incident, nil
}

// IncidentsFromFields builds the incident list of a history request.
func IncidentsFromFields(fields map[string]any) ([]models.Incident, error) {
	raw, ok := fields[fieldIncidents]
	if !ok {
		return []models.Incident{}, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, utils.NewFieldError(decodeOp, fieldIncidents, fmt.Sprintf("expected a list, got %T", raw), nil)
	}

	incidents := make([]models.Incident, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, utils.NewFieldError(decodeOp, fmt.Sprintf("%s[%d]", fieldIncidents, i), fmt.Sprintf("expected an object, got %T", item), nil)
		}
		incident, err := IncidentFromFields(obj)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", fieldIncidents, i, err)
		}
		incidents = append(incidents, incident)
	}
	return incidents, nil
}

func coerceInt(field string, v any) (float64, error) {
	switch value := v.(type) {
	case bool:
		if value {
			return 1, nil
		}
		return 0, nil
	case int:
		return float64(value), nil
	case int64:
		return float64(value), nil
	case float64:
		return truncate(field, value)
	case json.Number:
		if i, err := value.Int64(); err == nil {
			return float64(i), nil
		}
		f, err := value.Float64()
		if err != nil {
			return 0, utils.NewFieldError(decodeOp, field, "invalid number", err)
		}
		return truncate(field, f)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return 0, utils.NewFieldError(decodeOp, field, fmt.Sprintf("%q is not an integer", value), err)
		}
		return float64(i), nil
	default:
		return 0, utils.NewFieldError(decodeOp, field, fmt.Sprintf("cannot convert %T to an integer", v), nil)
	}
}

func truncate(field string, f float64) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, utils.NewFieldError(decodeOp, field, "value is not finite", errors.New("invalid number"))
	}
	return math.Trunc(f), nil
}

func coerceString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	default:
		return fmt.Sprint(value)
	}
}

func truthy(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case bool:
		return value
	case int:
		return value != 0
	case int64:
		return value != 0
	case float64:
		return value != 0
	case json.Number:
		f, err := value.Float64()
		return err != nil || f != 0
	case string:
		return value != ""
	case []any:
		return len(value) > 0
	case map[string]any:
		return len(value) > 0
	default:
		return true
	}
}
