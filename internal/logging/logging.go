package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global logger. level is a zerolog level name;
// human selects the console writer instead of JSON.
func InitLogger(level string, human bool) error {
	return initLogger(os.Stdout, level, human)
}

func initLogger(out io.Writer, level string, human bool) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	base := zerolog.New(out).With().Timestamp().Logger()
	if human {
		log.Logger = base.Output(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339Nano,
		})
	} else {
		log.Logger = base
	}
	zerolog.SetGlobalLevel(lvl)

	return nil
}

// LogRequest logs a received control command.
func LogRequest(requestID, clientIP, command string, args []string, activeConns int) {
	log.Info().
		Str("event", "request_received").
		Str("request_id", requestID).
		Str("client_ip", clientIP).
		Str("command", command).
		Strs("args", args).
		Int("active_connections", activeConns).
		Msg("received command")
}

// LogResponse logs the reply to a control command.
func LogResponse(requestID, clientIP, command string, ok bool, errorCode int, elapsed time.Duration) {
	log.Info().
		Str("event", "response_sent").
		Str("request_id", requestID).
		Str("client_ip", clientIP).
		Str("command", command).
		Bool("ok", ok).
		Int("error_code", errorCode).
		Dur("duration", elapsed).
		Msg("sent response")
}
