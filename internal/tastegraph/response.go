package tastegraph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/culture-compass/backend/internal/storage/models"
)

var ErrTransport = errors.New("taste-graph request failed")

// Response is either a result list or an error marker, never both.
type Response struct {
	Results  Entities        `json:"results,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func (r Response) Failed() bool {
	return r.Error != ""
}

// Err returns the error marker as an error wrapping ErrTransport, or nil.
func (r Response) Err() error {
	if r.Error == "" {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrTransport, r.Error)
}

func errorResponse(format string, args ...any) Response {
	return Response{Error: fmt.Sprintf(format, args...)}
}

// Entities decodes the results field, which search returns as a bare array
// and insights wraps as {"entities": [...]}.
type Entities []models.Entity

func (e *Entities) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*e = nil
		return nil
	}

	if data[0] == '[' {
		var list []models.Entity
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*e = list
		return nil
	}

	var wrapped struct {
		Entities []models.Entity `json:"entities"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*e = wrapped.Entities
	return nil
}

// IDs returns up to limit non-empty identifiers. A limit of 0 or less means no limit.
func (e Entities) IDs(limit int) []string {
	ids := make([]string, 0, len(e))
	for _, entity := range e {
		if limit > 0 && len(ids) == limit {
			break
		}
		if id := entity.Identifier(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func (e Entities) First(n int) []models.Entity {
	if n >= 0 && len(e) > n {
		return append([]models.Entity(nil), e[:n]...)
	}
	return append([]models.Entity(nil), e...)
}
