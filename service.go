package accesskit

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// UserRef identifies a user by ID alone. It is useful when only the ID is
// known, e.g. after authenticating a request.
type UserRef int64

// UserID returns the referenced ID.
func (u UserRef) UserID() int64 { return int64(u) }

// Service holds the backend, configuration and logger shared by every
// Authorizer of an application and builds one Authorizer per user.
//
// Example:
//
//	cfg, _ := accesskit.LoadConfig(viper.GetViper())
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	svc, _ := accesskit.NewService(accesskit.NewStore(db, cfg.Models), cfg, logger)
//
//	auth := svc.ForID(userID)
//	if ok, _ := auth.Can(ctx, "articles.edit", false); ok {
//	    // ...
//	}
type Service struct {
	backend Backend
	config  Config
	matcher *SlugMatcher
	logger  zerolog.Logger
	opts    []Option
}

// NewService creates a new Service. The configuration is validated once
// here; Authorizers built from the service share its pattern cache. When
// backend reports its model bindings they must equal config.Models.
func NewService(backend Backend, config Config, logger zerolog.Logger, opts ...Option) (*Service, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if b, ok := backend.(interface{ Models() Models }); ok && b.Models() != config.Models {
		return nil, NewError(ErrInvalidConfig, fmt.Sprintf("model bindings %+v differ from the backend's %+v", config.Models, b.Models()))
	}
	logger = logger.With().Str("component", "accesskit").Logger()
	if config.Pretend.Enabled {
		logger.Warn().
			Bool("is", config.Pretend.Options.Is).
			Bool("can", config.Pretend.Options.Can).
			Bool("allowed", config.Pretend.Options.Allowed).
			Msg("pretend mode enabled, authorization checks are stubbed")
	}
	return &Service{
		backend: backend,
		config:  config,
		matcher: NewSlugMatcher(config.CaseInsensitive),
		logger:  logger,
		opts:    opts,
	}, nil
}

// Backend returns the backend the service was built with.
func (s *Service) Backend() Backend {
	return s.backend
}

// Config returns the service configuration.
func (s *Service) Config() Config {
	return s.config
}

// Logger returns the service logger.
func (s *Service) Logger() zerolog.Logger {
	return s.logger
}

// For builds an Authorizer for user. Options are applied after the
// service defaults.
func (s *Service) For(user Identifiable, opts ...Option) *Authorizer {
	all := make([]Option, 0, len(s.opts)+len(opts)+2)
	all = append(all, WithLogger(s.logger), WithMatcher(s.matcher))
	all = append(all, s.opts...)
	all = append(all, opts...)
	return NewAuthorizer(user, s.backend, s.backend, s.config, all...)
}

// ForID builds an Authorizer for the user with the given ID.
func (s *Service) ForID(userID int64, opts ...Option) *Authorizer {
	return s.For(UserRef(userID), opts...)
}

// Seed seeds registry into the backend and logs the outcome.
func (s *Service) Seed(ctx context.Context, registry *Registry) (SeedResult, error) {
	result, err := registry.Seed(ctx, s.backend)
	if err != nil {
		s.logger.Error().Err(err).Str("operation", "seed").Msg("seeding failed")
		return result, err
	}
	s.logger.Info().
		Str("operation", "seed").
		Int("roles_created", result.RolesCreated).
		Int("permissions_created", result.PermissionsCreated).
		Int("links_created", result.LinksCreated).
		Msg("roles and permissions seeded")
	return result, nil
}

// ============================================================================
// ROLE PERMISSIONS
// ============================================================================

// AttachRolePermission grants the permission with slug permission to the
// role with slug role. It reports false when the role already had it.
func (s *Service) AttachRolePermission(ctx context.Context, role, permission string) (bool, error) {
	r, p, err := s.lookupPair(ctx, role, permission)
	if err != nil {
		return false, err
	}
	created, err := s.backend.AttachRolePermission(ctx, r.ID, p.ID)
	if err != nil {
		return false, err
	}
	s.logger.Debug().Str("operation", "attach_role_permission").Str("role", role).Str("permission", permission).Bool("created", created).Msg("role permission attached")
	return created, nil
}

// DetachRolePermission revokes a permission from a role, both given by slug.
func (s *Service) DetachRolePermission(ctx context.Context, role, permission string) (int64, error) {
	r, p, err := s.lookupPair(ctx, role, permission)
	if err != nil {
		return 0, err
	}
	return s.backend.DetachRolePermission(ctx, r.ID, p.ID)
}

// DetachAllRolePermissions revokes every permission of the role with the
// given slug.
func (s *Service) DetachAllRolePermissions(ctx context.Context, role string) (int64, error) {
	r, err := s.backend.FindRoleBySlug(ctx, role)
	if err != nil {
		return 0, err
	}
	return s.backend.DetachAllRolePermissions(ctx, r.ID)
}

// RolePermissions returns the permissions attached directly to a role.
func (s *Service) RolePermissions(ctx context.Context, role string) ([]Permission, error) {
	r, err := s.backend.FindRoleBySlug(ctx, role)
	if err != nil {
		return nil, err
	}
	return s.backend.PermissionsOfRole(ctx, r.ID)
}

func (s *Service) lookupPair(ctx context.Context, role, permission string) (*Role, *Permission, error) {
	r, err := s.backend.FindRoleBySlug(ctx, role)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.backend.FindPermissionBySlug(ctx, permission)
	if err != nil {
		return nil, nil, err
	}
	return r, p, nil
}

// ============================================================================
// HEALTH
// ============================================================================

// Ping checks the backend when it supports health checks.
func (s *Service) Ping(ctx context.Context) error {
	if h, ok := s.backend.(HealthMonitor); ok {
		return h.Ping(ctx)
	}
	return nil
}
