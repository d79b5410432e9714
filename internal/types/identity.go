package types

import "fmt"

// Identity is the minimal description of a person the core acts on or
// for. It is independent of any messaging-library user type; the
// command layer builds one from whatever its transport hands it.
type Identity struct {
	ID          int64
	DisplayName string
	Username    string
}

func (i Identity) Label() string {
	if i.Username != "" {
		return fmt.Sprintf("%s (@%s)", i.DisplayName, i.Username)
	}
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return fmt.Sprintf("id:%d", i.ID)
}
