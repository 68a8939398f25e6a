package handlers

import (
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
)

// Deps are the collaborators handlers resolve per request. Nil entries stay
// unregistered and their routes answer 500.
type Deps struct {
	Resolver  Resolver
	Ranker    Ranker
	Reviewer  Reviewer
	Conflicts ConflictResolver
}

// NewContainer registers deps in a new dependency container named id
func NewContainer(id string, deps Deps) (ectocontainer.DIContainer, error) {
	container, err := ectoinject.NewDIContainer(ectocontainer.DIContainerConfig{
		ID:                       id,
		AllowMissingDependencies: true,
		LoggerConfig:             &ectocontainer.DIContainerLoggerConfig{Prefix: "fern", Enabled: false},
	})
	if err != nil {
		return nil, err
	}

	if err := register(container, deps.Resolver); err != nil {
		return nil, err
	}
	if err := register(container, deps.Ranker); err != nil {
		return nil, err
	}
	if err := register(container, deps.Reviewer); err != nil {
		return nil, err
	}
	if err := register(container, deps.Conflicts); err != nil {
		return nil, err
	}
	return container, nil
}

func register[T any](container ectocontainer.DIContainer, instance T) error {
	if any(instance) == nil {
		return nil
	}
	return ectoinject.RegisterInstance[T](container, instance)
}
