package telegram

import (
	"context"
)

// ValidationFacet checks that credentials can reach Telegram
type ValidationFacet interface {
	Probe(ctx context.Context) (ProbeResult, error)
}

type validationFacet struct {
	conn Conn
}

func (v *validationFacet) Probe(ctx context.Context) (ProbeResult, error) {
	if err := v.conn.Start(ctx); err != nil {
		return ProbeResult{}, err
	}
	status, err := v.conn.Auth().Status(ctx)
	if err != nil {
		return ProbeResult{Reachable: true}, classify(err, "validate")
	}
	return ProbeResult{Reachable: true, Authorized: status.Authorized}, nil
}
