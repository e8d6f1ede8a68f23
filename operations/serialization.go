package operations

import (
	"encoding/json"
	"fmt"

	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

// IsSerializable reports whether v can be written to a report as JSON. Values that fail to
// marshal are logged with the marshal error.
func IsSerializable(lggr logger.Logger, v any) bool {
	if _, err := json.Marshal(v); err != nil {
		lggr.Errorw("Value is not JSON serializable", "type", fmt.Sprintf("%T", v), "error", err)
		return false
	}

	return true
}
