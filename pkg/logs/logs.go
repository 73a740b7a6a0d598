package logs

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. With a file path the log goes to the file,
// optionally mirrored to a console writer; with an empty path, stderr only.
func New(logFilePath string, withConsole bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	var writer io.Writer
	switch {
	case logFilePath == "":
		writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	default:
		logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			// fall back to stderr rather than refusing to start
			writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
			break
		}
		writer = logFile
		if withConsole {
			writer = zerolog.MultiLevelWriter(logFile, zerolog.ConsoleWriter{
				Out:        os.Stdout,
				TimeFormat: time.RFC3339,
			})
		}
	}

	return zerolog.New(writer).With().Timestamp().Logger()
}
