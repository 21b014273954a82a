package model

// Priors holds the hyperparameters of the generative model. Intercept and
// slope get Normal(mean, sd) priors; the OLRE standard deviation gets a
// half-Normal(scale) prior.
type Priors struct {
	InterceptMean  float64 `json:"intercept_mean"`
	InterceptSD    float64 `json:"intercept_sd"`
	SlopeMean      float64 `json:"slope_mean"`
	SlopeSD        float64 `json:"slope_sd"`
	OLRESigmaScale float64 `json:"olre_sigma_scale"`
}

// Spec is an immutable specification of a Poisson log-link count model with
// an optional observation-level random effect. Prediction never augments a
// spec in place; posterior draws plus covariates flow through pure functions
// instead.
type Spec struct {
	Priors      Priors `json:"priors"`
	IncludeOLRE bool   `json:"include_olre"`
}

// DefaultPriors returns weakly informative priors suitable for standardized
// covariates
func DefaultPriors() Priors {
	return Priors{
		InterceptMean:  0,
		InterceptSD:    5,
		SlopeMean:      0,
		SlopeSD:        2.5,
		OLRESigmaScale: 1,
	}
}

// NewSpec builds a model spec with the given priors
func NewSpec(priors Priors, includeOLRE bool) Spec {
	return Spec{Priors: priors, IncludeOLRE: includeOLRE}
}
