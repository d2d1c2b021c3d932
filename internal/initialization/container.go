package initialization

import (
	"context"
	"os"
	"time"

	"github.com/flowbaker/misoca-monthly/internal/auth"
	"github.com/flowbaker/misoca-monthly/internal/config"
	"github.com/flowbaker/misoca-monthly/internal/failure"
	"github.com/flowbaker/misoca-monthly/internal/job"
	"github.com/flowbaker/misoca-monthly/internal/setup"
	"github.com/flowbaker/misoca-monthly/internal/tokenstore"
	"github.com/flowbaker/misoca-monthly/internal/version"
	"github.com/flowbaker/misoca-monthly/pkg/clients/misoca"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

type JobDependencies struct {
	Backend    tokenstore.Backend
	Store      tokenstore.Store
	Holder     *auth.TokenHolder
	Refresher  *auth.Refresher
	Duplicator *job.Duplicator
}

type SetupDependencies struct {
	App          *fiber.App
	Address      string
	AuthorizeURL string
}

type ContainerOptions struct {
	// Stat replaces os.Stat when probing the env mount path
	Stat func(string) (os.FileInfo, error)
	// ClientOptions are appended after the options derived from config
	ClientOptions []misoca.ClientOption
}

// Container builds the object graph for each command from a loaded config
type Container struct {
	config  *config.Config
	options ContainerOptions
}

func NewContainer(cfg *config.Config, opts ContainerOptions) *Container {
	return &Container{
		config:  cfg,
		options: opts,
	}
}

func (c *Container) MisocaClient() *misoca.Client {
	options := []misoca.ClientOption{
		misoca.WithBaseURL(c.config.MisocaBaseURL),
		misoca.WithCredentials(c.config.ClientID, c.config.ClientSecret),
		misoca.WithUserAgent(version.UserAgent()),
	}

	return misoca.NewClient(append(options, c.options.ClientOptions...)...)
}

// BuildJobDependencies selects the token store once and wires the duplication pipeline
func (c *Container) BuildJobDependencies(ctx context.Context) (*JobDependencies, error) {
	log.Info().Msg("Building job dependencies")

	loc, err := c.config.Location()
	if err != nil {
		return nil, failure.NewError(failure.KindConfig, "timezone", err)
	}

	env := tokenstore.DetectEnvironment(c.config, c.options.Stat)
	backend := tokenstore.Select(env)

	log.Debug().
		Bool("managed_batch", env.ManagedBatch).
		Bool("env_mount_present", env.EnvMountPresent).
		Bool("bucket_configured", env.BucketConfigured).
		Bool("token_preset", env.TokenPreset).
		Msg("Runtime environment detected")

	store, err := tokenstore.New(ctx, backend, c.config)
	if err != nil {
		return nil, failure.NewError(failure.KindPersistence, "token store", err)
	}

	initial, err := auth.InitialToken(ctx, c.config.RefreshToken, store)
	if err != nil {
		return nil, err
	}

	client := c.MisocaClient()
	holder := auth.NewTokenHolder(initial)

	refresher := auth.NewRefresher(auth.RefresherDependencies{
		Client:      client,
		Store:       store,
		Holder:      holder,
		RedirectURI: c.config.RedirectURI,
	})

	duplicator := job.NewDuplicator(job.DuplicatorDependencies{
		Tokens:          refresher,
		API:             client,
		SourceInvoiceID: c.config.SourceInvoiceID,
		Now: func() time.Time {
			return time.Now().In(loc)
		},
	})

	return &JobDependencies{
		Backend:    backend,
		Store:      store,
		Holder:     holder,
		Refresher:  refresher,
		Duplicator: duplicator,
	}, nil
}

func (c *Container) BuildSetupDependencies() *SetupDependencies {
	client := c.MisocaClient()

	app := setup.NewServer(setup.ServerDependencies{
		Client:      client,
		RedirectURI: c.config.RedirectURI,
	})

	return &SetupDependencies{
		App:          app,
		Address:      c.config.SetupAddress,
		AuthorizeURL: client.AuthorizeURL(c.config.RedirectURI, c.config.OAuthScope, ""),
	}
}
