// Package locate turns a resolved identity and a cleaned sentence into a
// content address and answers whether the addressed asset exists.
//
// Addressing is pure: identical inputs always produce the same id, which is
// the system's cache key into an append-only, externally provisioned asset
// inventory. Nothing here touches the network or disk.
package locate

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/kvxd/aethervox/pkg/manifest"
	"github.com/kvxd/aethervox/pkg/types"
)

// AssetID computes the content address for one voiced line. The inputs are
// joined with ":" before hashing, so they contribute positionally: the same
// sentence under a different voice or speaker addresses a different asset.
//
// Changing this function re-addresses every existing asset. Don't.
func AssetID(voiceName, speakerName, sentence string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{voiceName, speakerName, sentence}, ":")))
	return hex.EncodeToString(sum[:])
}

// Result is one located line.
type Result struct {
	// ID is the content address of the line.
	ID string

	// Exists reports whether the inventory holds a pre-rendered asset under
	// ID. When false the caller falls back to synthesis.
	Exists bool
}

// Locate addresses the line spoken by voice/npc and checks the manifest
// inventory for it. voice may be nil; the address is then computed under
// the empty voice name and will not exist, which routes the line to
// synthesis while keeping the id stable for reporting.
func Locate(m *manifest.Manifest, voice *types.VoiceIdentity, speakerName, sentence string) Result {
	voiceName := ""
	if voice != nil {
		voiceName = voice.ID
	}
	id := AssetID(voiceName, speakerName, sentence)
	return Result{ID: id, Exists: m.AssetExists(id)}
}
