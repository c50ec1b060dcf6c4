package reconcile

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// shape tags which variant a decoded entry turned out to be.
type shape int

const (
	shapeInvalid shape = iota
	shapeBare
	shapeObject
)

func shapeOf(raw json.RawMessage) shape {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return shapeInvalid
	}
	switch raw[0] {
	case '"':
		return shapeBare
	case '{':
		return shapeObject
	}
	return shapeInvalid
}

// textEntry is a task, idea or project: either a bare string or an object
// holding the text under a named field.
type textEntry struct {
	shape  shape
	bare   string
	object object
}

func (e *textEntry) UnmarshalJSON(b []byte) error {
	*e = textEntry{shape: shapeOf(b)}
	switch e.shape {
	case shapeBare:
		if json.Unmarshal(b, &e.bare) != nil {
			e.shape = shapeInvalid
		}
	case shapeObject:
		if json.Unmarshal(b, &e.object) != nil {
			e.shape = shapeInvalid
		}
	}
	return nil
}

// text resolves the entry. Objects without a string under field, and values
// of any other JSON type, degrade to "".
func (e textEntry) text(field string) (string, bool) {
	switch e.shape {
	case shapeBare:
		return e.bare, true
	case shapeObject:
		var s string
		if raw, ok := e.object[field]; ok && json.Unmarshal(raw, &s) == nil {
			return s, true
		}
	}
	return "", false
}

// imageObject is the metadata form of an image entry.
type imageObject struct {
	Filename string          `json:"filename"`
	Path     string          `json:"path"`
	Format   string          `json:"format"`
	Size     json.RawMessage `json:"size"`
}

// imageEntry is either a bare filename or an imageObject.
type imageEntry struct {
	shape  shape
	bare   string
	object imageObject
}

func (e *imageEntry) UnmarshalJSON(b []byte) error {
	*e = imageEntry{shape: shapeOf(b)}
	switch e.shape {
	case shapeBare:
		if json.Unmarshal(b, &e.bare) != nil {
			e.shape = shapeInvalid
		}
	case shapeObject:
		if json.Unmarshal(b, &e.object) != nil {
			e.shape = shapeInvalid
		}
	}
	return nil
}

func (e imageEntry) resolve(order int) (Image, bool) {
	var img Image
	switch e.shape {
	case shapeBare:
		img = Image{Filename: e.bare}
	case shapeObject:
		img = Image{
			Filename:     e.object.Filename,
			RelativePath: e.object.Path,
			Format:       e.object.Format,
		}
		img.SizeBytes = byteSize(e.object.Size)
	default:
		return Image{}, false
	}
	if img.Filename == "" {
		return Image{}, false
	}
	if img.RelativePath == "" {
		img.RelativePath = DefaultImageDir + "/" + img.Filename
	}
	img.Order = order
	return img, true
}

// byteSize reads a size given as a number or a numeric string. Anything else is 0.
func byteSize(raw json.RawMessage) int64 {
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return int64(f)
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return int64(f)
		}
	}
	return 0
}

// linkSet is either a flat list of URLs (untyped) or a mapping from link
// type to URLs.
type linkSet struct {
	shape shape
	flat  []json.RawMessage
	typed map[string]json.RawMessage
}

func (s *linkSet) UnmarshalJSON(b []byte) error {
	*s = linkSet{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '[':
		if json.Unmarshal(b, &s.flat) == nil {
			s.shape = shapeBare
		}
	case '{':
		if json.Unmarshal(b, &s.typed) == nil {
			s.shape = shapeObject
		}
	}
	return nil
}

// resolve flattens the set into links. Non-string and empty URLs are
// reported through skip. Typed groups come out ordered by type.
func (s linkSet) resolve(skip func(linkType string)) []Link {
	var links []Link
	add := func(linkType string, entries []json.RawMessage) {
		for _, raw := range entries {
			var url string
			if json.Unmarshal(raw, &url) != nil || url == "" {
				skip(linkType)
				continue
			}
			links = append(links, Link{URL: url, Type: linkType})
		}
	}

	switch s.shape {
	case shapeBare:
		add("", s.flat)
	case shapeObject:
		types := make([]string, 0, len(s.typed))
		for t := range s.typed {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			var group []json.RawMessage
			if json.Unmarshal(s.typed[t], &group) != nil {
				skip(t)
				continue
			}
			add(t, group)
		}
	}
	return links
}
