package telegram

import (
	"context"
	"errors"
	"strings"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"

	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
)

// AuthFacet drives phone-code sign in
type AuthFacet interface {
	IsAuthenticated(ctx context.Context) (bool, error)
	RequestCode(ctx context.Context) (ConnectOutcome, error)
	VerifyCode(ctx context.Context, code, phoneCodeHash string) error
	SubmitPassword(ctx context.Context, password string) error
	LogOut(ctx context.Context) error
}

type authFacet struct {
	conn     Conn
	state    *authMachine
	phone    string
	testCode string
	logger   zerolog.Logger
}

func newAuthFacet(conn Conn, state *authMachine, phone, testCode string, logger zerolog.Logger) *authFacet {
	return &authFacet{
		conn:     conn,
		state:    state,
		phone:    phone,
		testCode: testCode,
		logger:   logger.With().Str("facet", "auth").Logger(),
	}
}

func (a *authFacet) IsAuthenticated(ctx context.Context) (bool, error) {
	status, err := a.conn.Auth().Status(ctx)
	if err != nil {
		return false, classify(err, "auth status")
	}
	if !status.Authorized {
		return false, nil
	}
	if err := a.state.transition(StateAuthorized); err != nil {
		a.logger.Debug().Err(err).Msg("authorized session found in non-initial state")
		a.state.reset()
		_ = a.state.transition(StateAuthorized)
	}
	return true, nil
}

func (a *authFacet) RequestCode(ctx context.Context) (ConnectOutcome, error) {
	sent, err := a.conn.Auth().SendCode(ctx, a.phone, auth.SendCodeOptions{})
	if err != nil {
		return ConnectOutcome{}, classify(err, "send code")
	}

	switch s := sent.(type) {
	case *tg.AuthSentCode:
		if err := a.state.transition(StateAwaitingCode); err != nil {
			return ConnectOutcome{}, pkgerrors.Wrap(pkgerrors.KindProtocolRejection, err, "send code")
		}
		outcome := ConnectOutcome{
			CodeNeeded:    true,
			PhoneCodeHash: s.PhoneCodeHash,
			TestCode:      a.testCode,
		}
		if s.Type != nil {
			outcome.CodeType = strings.TrimPrefix(s.Type.TypeName(), "auth.sentCodeType")
		}
		if timeout, ok := s.GetTimeout(); ok {
			outcome.CodeTimeout = timeout
		}
		a.logger.Info().Str("code_type", outcome.CodeType).Msg("verification code sent")
		return outcome, nil
	case *tg.AuthSentCodeSuccess:
		if err := a.state.transition(StateAuthorized); err != nil {
			return ConnectOutcome{}, pkgerrors.Wrap(pkgerrors.KindProtocolRejection, err, "send code")
		}
		return ConnectOutcome{Authorized: true}, nil
	default:
		return ConnectOutcome{}, pkgerrors.Newf(pkgerrors.KindProtocolRejection, "unexpected sent code type %T", sent)
	}
}

// VerifyCode signs in with the code. A client built from an interim session
// starts unauthorized and is moved to awaiting_code first.
func (a *authFacet) VerifyCode(ctx context.Context, code, phoneCodeHash string) error {
	if code == "" || phoneCodeHash == "" {
		return pkgerrors.New(pkgerrors.KindInvalidVerificationCode, "code and phone code hash are required")
	}
	if a.state.is(StateUnauthorized) {
		_ = a.state.transition(StateAwaitingCode)
	}
	if !a.state.is(StateAwaitingCode) {
		return pkgerrors.Newf(pkgerrors.KindProtocolRejection, "cannot verify code in state %s", a.state.current())
	}

	_, err := a.conn.Auth().SignIn(ctx, a.phone, code, phoneCodeHash)
	switch {
	case err == nil:
		return a.state.transition(StateAuthorized)
	case errors.Is(err, auth.ErrPasswordAuthNeeded):
		if terr := a.state.transition(StateAwaitingPassword); terr != nil {
			return terr
		}
		a.logger.Info().Msg("two-factor password required")
		return ErrPasswordRequired
	}

	classified := classify(err, "sign in")
	if !pkgerrors.KindOf(classified).Retryable() {
		_ = a.state.transition(StateUnauthorized)
	}
	return classified
}

func (a *authFacet) SubmitPassword(ctx context.Context, password string) error {
	if password == "" {
		return pkgerrors.New(pkgerrors.KindInvalidVerificationCode, "password is required")
	}
	if !a.state.is(StateAwaitingPassword) {
		return pkgerrors.Newf(pkgerrors.KindProtocolRejection, "cannot submit password in state %s", a.state.current())
	}

	if _, err := a.conn.Auth().Password(ctx, password); err != nil {
		return classify(err, "check password")
	}
	return a.state.transition(StateAuthorized)
}

func (a *authFacet) LogOut(ctx context.Context) error {
	defer a.state.reset()
	if !a.state.is(StateAuthorized) {
		return nil
	}
	if _, err := a.conn.API().AuthLogOut(ctx); err != nil {
		return classify(err, "log out")
	}
	return nil
}
