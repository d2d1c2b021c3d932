package auth

import (
	"context"
	"errors"

	"github.com/flowbaker/misoca-monthly/internal/failure"
	"github.com/flowbaker/misoca-monthly/internal/tokenstore"
	"github.com/flowbaker/misoca-monthly/pkg/clients/misoca"
	"github.com/rs/zerolog/log"
)

var ErrNoRefreshToken = errors.New("REFRESH_TOKEN is not set")

// TokenHolder is the single in-memory copy of the current refresh token for a run
type TokenHolder struct {
	value string
}

func NewTokenHolder(initial string) *TokenHolder {
	return &TokenHolder{value: initial}
}

func (h *TokenHolder) Get() string {
	return h.value
}

func (h *TokenHolder) Set(token string) {
	h.value = token
}

// TokenExchanger is the token endpoint call the refresher depends on
type TokenExchanger interface {
	RefreshToken(ctx context.Context, refreshToken, redirectURI string) (*misoca.TokenResponse, error)
}

type RefresherDependencies struct {
	Client      TokenExchanger
	Store       tokenstore.Store
	Holder      *TokenHolder
	RedirectURI string
}

// Refresher trades the held refresh token for an access token and persists rotations
type Refresher struct {
	client      TokenExchanger
	store       tokenstore.Store
	holder      *TokenHolder
	redirectURI string
}

func NewRefresher(deps RefresherDependencies) *Refresher {
	return &Refresher{
		client:      deps.Client,
		store:       deps.Store,
		holder:      deps.Holder,
		redirectURI: deps.RedirectURI,
	}
}

// AccessToken returns a fresh access token. When the server rotates the refresh token,
// the new value is saved to the store before the holder is updated.
func (r *Refresher) AccessToken(ctx context.Context) (string, error) {
	current := r.holder.Get()
	if current == "" {
		log.Error().Msg("REFRESH_TOKEN is not set. Run `misoca-monthly setup` to obtain one")
		log.Error().Msg("Locally: check that REFRESH_TOKEN is present in the env file")
		log.Error().Msg("On the batch runtime: upload the token as refresh-token.txt to the GCS_BUCKET_NAME bucket")
		return "", failure.NewError(failure.KindConfig, "refresh token", ErrNoRefreshToken)
	}

	log.Info().Msg("Requesting access token with refresh token")

	token, err := r.client.RefreshToken(ctx, current, r.redirectURI)
	if err != nil {
		logRefreshFailure(err)
		return "", failure.NewError(failure.KindAuth, "refresh token", err)
	}

	log.Info().Msg("Access token obtained")

	if token.RefreshToken != "" && token.RefreshToken != current {
		log.Info().Msg("Authorization server issued a new refresh token, persisting it")

		if err := r.store.Save(ctx, token.RefreshToken); err != nil {
			return "", failure.NewError(failure.KindPersistence, "save refresh token", err)
		}

		r.holder.Set(token.RefreshToken)
	}

	return token.AccessToken, nil
}

func logRefreshFailure(err error) {
	event := log.Error().Str("message", err.Error())

	apiErr, ok := misoca.AsError(err)
	if ok {
		event = event.
			Int("status", apiErr.StatusCode).
			Str("status_text", apiErr.StatusText()).
			Str("data", apiErr.Body)
	}

	event.Msg("Refresh token exchange failed")

	if ok && apiErr.IsInvalidGrant() {
		log.Error().Msg("The refresh token is no longer valid. To recover:")
		log.Error().Msg("1. Run `misoca-monthly setup` and complete the authorization in a browser")
		log.Error().Msg("2. Copy the refresh_token from the callback page")
		log.Error().Msg("3. Store it as REFRESH_TOKEN in the env file, or in the refresh-token.txt bucket object")
	}
}

// InitialToken resolves the refresh token a run starts with: the configured value when set,
// otherwise whatever the store holds.
func InitialToken(ctx context.Context, configured string, store tokenstore.Store) (string, error) {
	if configured != "" {
		log.Info().Str("token_preview", tokenstore.Preview(configured)).Msg("Using REFRESH_TOKEN from configuration")
		return configured, nil
	}

	token, err := store.Load(ctx)
	if err != nil {
		return "", failure.NewError(failure.KindPersistence, "load refresh token", err)
	}

	return token, nil
}
