package ensemble

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// MemberDim is the name of the ensemble member dimension. A State requires
// it to be the last dimension.
const MemberDim = "mem"

// Label is a coordinate value along a dimension. Supported kinds are
// string, the signed integer types and time.Time.
type Label = any

// Label kinds as they appear in the persisted dataset form.
const (
	KindString = "string"
	KindInt    = "int"
	KindTime   = "time"
)

// Dimension is a named axis together with its ordered coordinate labels.
type Dimension struct {
	Name   string
	Labels []Label
}

// Len returns the extent of the dimension.
func (d Dimension) Len() int { return len(d.Labels) }

// Index returns the position of label along d, or -1.
func (d Dimension) Index(label Label) int {
	key, err := labelKey(label)
	if err != nil {
		return -1
	}
	for i, l := range d.Labels {
		if k, _ := labelKey(l); k == key {
			return i
		}
	}
	return -1
}

func (d Dimension) clone() Dimension {
	labels := make([]Label, len(d.Labels))
	copy(labels, d.Labels)
	return Dimension{Name: d.Name, Labels: labels}
}

// labelKey reduces a label to a comparable string so that times match by
// instant and integer kinds match by value.
func labelKey(l Label) (string, error) {
	switch v := l.(type) {
	case string:
		return "s:" + v, nil
	case int:
		return "i:" + strconv.FormatInt(int64(v), 10), nil
	case int32:
		return "i:" + strconv.FormatInt(int64(v), 10), nil
	case int64:
		return "i:" + strconv.FormatInt(v, 10), nil
	case time.Time:
		return "t:" + strconv.FormatInt(v.UnixNano(), 10), nil
	default:
		return "", fmt.Errorf("%w: unsupported label type %T", ErrInvalidLabel, l)
	}
}

func labelKind(l Label) string {
	switch l.(type) {
	case int, int32, int64:
		return KindInt
	case time.Time:
		return KindTime
	default:
		return KindString
	}
}

// index builds the label-to-position lookup for d and rejects duplicates.
func (d Dimension) index() (map[string]int, error) {
	idx := make(map[string]int, len(d.Labels))
	for i, l := range d.Labels {
		key, err := labelKey(l)
		if err != nil {
			return nil, fmt.Errorf("dimension %q: %w", d.Name, err)
		}
		if _, dup := idx[key]; dup {
			return nil, fmt.Errorf("%w: dimension %q has duplicate label %v", ErrInvalidLabel, d.Name, l)
		}
		idx[key] = i
	}
	return idx, nil
}

type dimensionJSON struct {
	Name   string            `json:"name"`
	Kind   string            `json:"kind"`
	Labels []json.RawMessage `json:"labels"`
}

// MarshalJSON encodes the dimension with an explicit label kind so that
// times and integers survive the round trip.
func (d Dimension) MarshalJSON() ([]byte, error) {
	out := dimensionJSON{Name: d.Name, Kind: KindString, Labels: make([]json.RawMessage, 0, len(d.Labels))}
	if len(d.Labels) > 0 {
		out.Kind = labelKind(d.Labels[0])
	}
	for _, l := range d.Labels {
		if _, err := labelKey(l); err != nil {
			return nil, fmt.Errorf("dimension %q: %w", d.Name, err)
		}
		if k := labelKind(l); k != out.Kind {
			return nil, fmt.Errorf("%w: dimension %q mixes %s and %s labels", ErrInvalidLabel, d.Name, out.Kind, k)
		}
		raw, err := json.Marshal(l)
		if err != nil {
			return nil, fmt.Errorf("dimension %q: %w", d.Name, err)
		}
		out.Labels = append(out.Labels, raw)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes labels according to the recorded kind.
func (d *Dimension) UnmarshalJSON(data []byte) error {
	var in dimensionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	labels := make([]Label, len(in.Labels))
	for i, raw := range in.Labels {
		var err error
		switch in.Kind {
		case KindString, "":
			var s string
			err = json.Unmarshal(raw, &s)
			labels[i] = s
		case KindInt:
			var n int
			err = json.Unmarshal(raw, &n)
			labels[i] = n
		case KindTime:
			var t time.Time
			err = json.Unmarshal(raw, &t)
			labels[i] = t.UTC()
		default:
			return fmt.Errorf("%w: dimension %q has unknown kind %q", ErrInvalidLabel, in.Name, in.Kind)
		}
		if err != nil {
			return fmt.Errorf("dimension %q label %d: %w", in.Name, i, err)
		}
	}
	d.Name = in.Name
	d.Labels = labels
	return nil
}
