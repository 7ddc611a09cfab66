package commands

import (
	"context"
	"fmt"

	"github.com/boddenberg/artfy-client-go/internal/domain"
	"github.com/boddenberg/artfy-client-go/internal/format"
	"github.com/boddenberg/artfy-client-go/internal/service"
)

// RunLogin authenticates and stores the session. An empty password is read
// from the input.
func RunLogin(ctx context.Context, auth *service.AuthGateway, ioTuple IOTuple, email, password string) error {
	if password == "" {
		var err error
		if password, err = readSecret(ioTuple, "Senha: "); err != nil {
			return err
		}
	}

	sess, err := auth.Login(ctx, email, password)
	if err != nil {
		return err
	}

	fmt.Fprintln(ioTuple.Writer, "Login realizado com sucesso!")
	fmt.Fprintf(ioTuple.Writer, "Olá, %s.\n", sess.User.Name)
	return nil
}

// RunLogout clears the stored session.
func RunLogout(ctx context.Context, auth *service.AuthGateway, ioTuple IOTuple) error {
	if err := auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(ioTuple.Writer, "Logout realizado com sucesso!")
	return nil
}

type whoamiOutput struct {
	User      domain.ProfileForm `json:"user"`
	ExpiresAt string             `json:"expiresAt,omitempty"`
}

// RunWhoami prints the stored session's profile.
func RunWhoami(ctx context.Context, auth *service.AuthGateway, ioTuple IOTuple, output string) error {
	sess, err := auth.Current(ctx)
	if err != nil {
		return err
	}

	out := whoamiOutput{User: format.ToDisplay(sess.User)}
	if exp, ok := sess.ExpiresAt(); ok {
		out.ExpiresAt = exp.Local().Format("02/01/2006 15:04")
	}
	if output == OutputJSON {
		return printJSON(ioTuple.Writer, out)
	}

	fmt.Fprintf(ioTuple.Writer, "%s <%s>\n", out.User.Name, out.User.Email)
	if out.ExpiresAt != "" {
		fmt.Fprintf(ioTuple.Writer, "Sessão válida até %s\n", out.ExpiresAt)
	}
	return nil
}

// RunRegister creates an account. It does not log in.
func RunRegister(ctx context.Context, auth *service.AuthGateway, ioTuple IOTuple, in domain.RegisterInput) error {
	if in.Password == "" {
		var err error
		if in.Password, err = readSecret(ioTuple, "Senha: "); err != nil {
			return err
		}
	}
	if in.ConfirmPassword == "" {
		in.ConfirmPassword = in.Password
	}

	if err := auth.Register(ctx, in); err != nil {
		return err
	}
	fmt.Fprintln(ioTuple.Writer, "Usuário cadastrado com sucesso! Faça login para continuar.")
	return nil
}
