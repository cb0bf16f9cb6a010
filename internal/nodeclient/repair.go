package nodeclient

import "strings"

type jsonPatch struct {
	old string
	new string
}

// jsonPatches holds the known corrupt-JSON patterns emitted by specific
// symbols' metadata, patched before re-parsing. Narrow by construction:
// downstream data depends on these exact rewrites, do not generalize.
// TODO: drop the GAME trailing-comma patch once the minter contract is
// upgraded past protocol 7.
var jsonPatches = map[string][]jsonPatch{
	"GAME": {
		{old: ",}", new: "}"},
		{old: ",]", new: "]"},
	},
	"SMNFT": {
		{old: "\x00", new: ""},
	},
}

// repairJSON applies the symbol's known patches to a malformed payload.
// Returns the input unchanged when no patches are registered.
func repairJSON(symbol string, body []byte) []byte {
	patches, ok := jsonPatches[symbol]
	if !ok {
		return body
	}
	s := string(body)
	for _, p := range patches {
		s = strings.ReplaceAll(s, p.old, p.new)
	}
	return []byte(s)
}
