// Package commands contains the artfy CLI command implementations. Each Run
// function drives one user action through the client core and writes the
// result to an IOTuple so it can be tested without a terminal.
package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"

	"github.com/boddenberg/artfy-client-go/internal/domain"
)

// Output formats accepted by the --output flag.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// Prompter tells the shopper to log in again when a stored session is
// rejected. It implements port.ReauthPrompter.
type Prompter struct {
	Writer io.Writer
}

func (p Prompter) PromptReauth(_ context.Context, operation string) {
	fmt.Fprintf(p.Writer, "Sua sessão expirou (%s). Execute `artfy login` para entrar novamente.\n", operation)
}

// RenderError turns a core error into the message shown to the shopper.
func RenderError(err error) string {
	var unauthenticated *domain.ErrUnauthenticated
	var expired *domain.ErrSessionExpired
	var validation *domain.ErrValidation
	var invalidCredentials *domain.ErrInvalidCredentials
	var rejected *domain.ErrRegistrationRejected
	var failed *domain.ErrOperationFailed
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var network *domain.ErrNetwork
	var malformed *domain.ErrMalformedResponse

	switch {
	case errors.As(err, &unauthenticated):
		return "Faça login para continuar."
	case errors.As(err, &expired):
		return "Sua sessão expirou. Faça login novamente."
	case errors.As(err, &validation):
		fields := make([]string, 0, len(validation.Fields))
		for field := range validation.Fields {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		lines := make([]string, 0, len(fields))
		for _, field := range fields {
			lines = append(lines, fmt.Sprintf("%s: %s", field, validation.Fields[field]))
		}
		return strings.Join(lines, "\n")
	case errors.As(err, &invalidCredentials):
		return invalidCredentials.Error()
	case errors.As(err, &rejected):
		return rejected.Error()
	case errors.As(err, &failed):
		return failed.Message
	case errors.As(err, &notFound):
		return notFound.Error()
	case errors.As(err, &circuitOpen):
		return "Serviço temporariamente indisponível. Tente novamente."
	case errors.As(err, &network):
		return "Não foi possível conectar ao servidor. Tente novamente."
	case errors.As(err, &malformed):
		return "Resposta inesperada do servidor."
	default:
		return err.Error()
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// readSecret reads a password without echo when the input is a terminal and
// falls back to readLine otherwise.
func readSecret(ioTuple IOTuple, prompt string) (string, error) {
	f, ok := ioTuple.Reader.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return readLine(ioTuple, prompt)
	}

	fmt.Fprint(ioTuple.Writer, prompt)
	pw, err := readPassword(int(f.Fd()))
	fmt.Fprintln(ioTuple.Writer)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

// readLine prints prompt and reads one line from r without the newline.
func readLine(ioTuple IOTuple, prompt string) (string, error) {
	fmt.Fprint(ioTuple.Writer, prompt)
	line, err := bufio.NewReader(ioTuple.Reader).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
