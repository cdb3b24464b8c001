package reflectx

import "strings"

// PathSegment is one token of a dotted/bracketed property path, e.g. the
// path "list[0].name" yields {Name:"list", Index:"0", HasNext:true},
// {Name:"", Index:"", ...} is never produced - "name" never carries an index.
type PathSegment struct {
	Name    string
	Index   string // non-empty when this segment was `name[index]`
	HasNext bool
}

// Tokenize splits a dotted property path into a slice of
// {name, index?, hasNext} segments.
func Tokenize(path string) []PathSegment {
	parts := strings.Split(path, ".")
	segments := make([]PathSegment, 0, len(parts))
	for i, p := range parts {
		name, index := splitIndex(p)
		segments = append(segments, PathSegment{
			Name:    name,
			Index:   index,
			HasNext: i < len(parts)-1,
		})
	}
	return segments
}

func splitIndex(segment string) (name, index string) {
	open := strings.IndexByte(segment, '[')
	if open < 0 || !strings.HasSuffix(segment, "]") {
		return segment, ""
	}
	return segment[:open], segment[open+1 : len(segment)-1]
}
