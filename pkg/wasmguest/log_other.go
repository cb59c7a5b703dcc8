//go:build !wasm

package wasmguest

import "github.com/rs/zerolog/log"

// Outside wasm, guest messages go straight to the process logger so that
// guest code can be unit tested natively.

// LogDebug sends a debug message to the host log.
func LogDebug(msg string) { log.Debug().Str("source", "wasm").Msg(msg) }

// LogInfo sends a message to the host log.
func LogInfo(msg string) { log.Info().Str("source", "wasm").Msg(msg) }

// LogError sends an error message to the host log.
func LogError(msg string) { log.Error().Str("source", "wasm").Msg(msg) }
