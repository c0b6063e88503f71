// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package projection

import (
	"encoding/json"

	"github.com/jeranaias/chatwidget/internal/model"
)

// debugDump pretty-prints the context for the "Debug - Context" panel. A nil
// context has no dump.
func debugDump(rc *model.ResponseContext) string {
	if rc == nil {
		return ""
	}
	data, err := json.MarshalIndent(rc, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}
