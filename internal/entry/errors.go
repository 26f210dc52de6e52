package entry

import "fmt"

func errInvariant(format string, args ...any) error {
	return fmt.Errorf("entry: "+format, args...)
}
