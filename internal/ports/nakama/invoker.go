package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/app"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/bot"
	"github.com/michaelelalam-glitch/Big-Two-Neo-sub014/internal/domain"
)

// serviceInvoker routes coordinator moves through the same RPC handlers
// players use, carrying a minted service token instead of a session.
// Handlers running in this mode skip the bot re-trigger, which is what
// keeps coordinator recursion impossible.
type serviceInvoker struct {
	handlers *Handlers
	tokens   *app.ServiceTokenService
}

var _ bot.Invoker = (*serviceInvoker)(nil)

func newServiceInvoker(handlers *Handlers, tokens *app.ServiceTokenService) *serviceInvoker {
	return &serviceInvoker{handlers: handlers, tokens: tokens}
}

func (i *serviceInvoker) PlayCards(ctx context.Context, code, identity string, cards []domain.Card) error {
	token, err := i.tokens.Mint(identity, code)
	if err != nil {
		return fmt.Errorf("mint service token: %w", err)
	}
	payload, err := json.Marshal(playCardsRequest{
		RoomCode:      code,
		ActorIdentity: identity,
		Cards:         cards,
		ServiceToken:  token,
	})
	if err != nil {
		return err
	}
	out, err := i.handlers.PlayCards(ctx, string(payload))
	if err != nil {
		return err
	}
	return decodeActionError(out)
}

func (i *serviceInvoker) Pass(ctx context.Context, code, identity string) error {
	token, err := i.tokens.Mint(identity, code)
	if err != nil {
		return fmt.Errorf("mint service token: %w", err)
	}
	payload, err := json.Marshal(passRequest{
		RoomCode:      code,
		ActorIdentity: identity,
		ServiceToken:  token,
	})
	if err != nil {
		return err
	}
	out, err := i.handlers.PlayerPass(ctx, string(payload))
	if err != nil {
		return err
	}
	return decodeActionError(out)
}

func (i *serviceInvoker) BeginNextMatch(ctx context.Context, code string) error {
	token, err := i.tokens.Mint(internalActor, code)
	if err != nil {
		return fmt.Errorf("mint service token: %w", err)
	}
	payload, err := json.Marshal(startGameRequest{
		RoomCode:      code,
		ActorIdentity: internalActor,
		ServiceToken:  token,
	})
	if err != nil {
		return err
	}
	out, err := i.handlers.BeginNextMatch(ctx, string(payload))
	if err != nil {
		return err
	}
	return decodeActionError(out)
}

// decodeActionError turns an error envelope back into the engine
// sentinel the coordinator's race handling keys on.
func decodeActionError(response string) error {
	var envelope errorResponse
	if err := json.Unmarshal([]byte(response), &envelope); err != nil {
		return fmt.Errorf("malformed action response: %w", err)
	}
	if envelope.Success {
		return nil
	}
	return kindError(envelope.Error, envelope.Details)
}
