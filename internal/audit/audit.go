package audit

import (
	"context"
)

// Auditor records changes made to the datastore structure or contents.
// The open source build logs them; other sinks can implement the interface.
type Auditor interface {
	Log(ctx context.Context, action string, actor string, resource string, details map[string]interface{})
}
