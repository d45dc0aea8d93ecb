package mutate

import "fmt"

// NewClassSource returns the initial source of a class file: an exported
// class whose first member is its static id.
func NewClassSource(classID string) []byte {
	return []byte(fmt.Sprintf("export class %s {\n  static id = %s;\n}\n", classID, quote(classID)))
}
