package executor

import "fmt"

// Path locates a value or error within the response tree. Elements are
// response keys (string) or list indices (int).
type Path []PathElement

type PathElement any

// appendPath returns a new path with elem appended. The receiver is never
// mutated, so sibling fields can safely share a prefix.
func appendPath(path Path, elem PathElement) Path {
	newPath := make(Path, len(path)+1)
	copy(newPath, path)
	newPath[len(path)] = elem
	return newPath
}

func (p Path) String() string {
	result := ""
	for i, elem := range p {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				result += "."
			}
			result += v
		case int:
			result += fmt.Sprintf("[%d]", v)
		}
	}
	return result
}
