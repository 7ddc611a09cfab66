package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/boddenberg/artfy-client-go/internal/domain"
	"github.com/boddenberg/artfy-client-go/internal/format"
	"github.com/boddenberg/artfy-client-go/internal/service"
)

// RunProfile prints the stored profile in display form.
func RunProfile(ctx context.Context, profile *service.ProfileEditPipeline, ioTuple IOTuple, output string) error {
	draft, err := profile.Open(ctx)
	if err != nil {
		return err
	}
	return printForm(ioTuple, draft.Values, output)
}

// RunProfileEdit applies field=value assignments to a fresh draft and submits
// it. Only changed fields reach the backend. Every rejected assignment is
// reported before anything is sent.
func RunProfileEdit(ctx context.Context, profile *service.ProfileEditPipeline, ioTuple IOTuple, assignments []string, output string) error {
	draft, err := profile.Open(ctx)
	if err != nil {
		return err
	}

	rejected := make(map[string]string)
	for _, a := range assignments {
		field, raw, ok := strings.Cut(a, "=")
		if !ok {
			rejected[a] = "Use campo=valor."
			continue
		}
		if _, err := profile.Change(draft, strings.TrimSpace(field), raw); err != nil {
			var ve *domain.ErrValidation
			if !errors.As(err, &ve) {
				return err
			}
			for k, v := range ve.Fields {
				rejected[k] = v
			}
		}
	}
	if len(rejected) > 0 {
		return &domain.ErrValidation{Fields: rejected}
	}

	user, err := profile.Submit(ctx, draft)
	if err != nil {
		return err
	}

	if output != OutputJSON {
		fmt.Fprintln(ioTuple.Writer, "Seus dados foram atualizados.")
	}
	return printForm(ioTuple, format.ToDisplay(*user), output)
}

func printForm(ioTuple IOTuple, form domain.ProfileForm, output string) error {
	if output == OutputJSON {
		return printJSON(ioTuple.Writer, form)
	}

	for _, field := range domain.ProfileFields {
		value, _ := form.Get(field)
		fmt.Fprintf(ioTuple.Writer, "%-10s %s\n", field, value)
	}
	return nil
}
