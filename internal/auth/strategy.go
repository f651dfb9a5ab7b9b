// Copyright 2026 The Tenantcore Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package auth

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// Strategy names.
const (
	StrategyLocal  = "local"
	StrategyBearer = "bearer"
)

// Strategy resolves the principal of a request.
type Strategy interface {
	Name() string
	Authenticate(r *http.Request) (*Principal, error)
}

// Credentials is the body accepted by the local strategy.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LocalStrategy authenticates an email and password carried in a JSON body.
type LocalStrategy struct {
	service *Service
}

// NewLocalStrategy creates the local strategy.
func NewLocalStrategy(service *Service) *LocalStrategy {
	return &LocalStrategy{service: service}
}

func (s *LocalStrategy) Name() string { return StrategyLocal }

// Authenticate reads at most 64 KiB of JSON credentials from the body.
func (s *LocalStrategy) Authenticate(r *http.Request) (*Principal, error) {
	var creds Credentials
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&creds); err != nil {
		return nil, ErrInvalidCredentials
	}
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}
	return s.service.Authenticate(r.Context(), creds.Email, creds.Password)
}

// BearerStrategy authenticates an access token in the Authorization header.
// The token subject is re-read on every request, so deactivated users lose
// access before their token expires.
type BearerStrategy struct {
	service *Service
}

// NewBearerStrategy creates the bearer strategy.
func NewBearerStrategy(service *Service) *BearerStrategy {
	return &BearerStrategy{service: service}
}

func (s *BearerStrategy) Name() string { return StrategyBearer }

func (s *BearerStrategy) Authenticate(r *http.Request) (*Principal, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, ErrInvalidToken
	}

	claims, err := s.service.tokens.Verify(strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	return s.service.principalFromClaims(r.Context(), claims)
}

// Strategies is a lookup table of strategies keyed by name.
type Strategies map[string]Strategy

// NewStrategies indexes strategies by Name.
func NewStrategies(strategies ...Strategy) Strategies {
	out := make(Strategies, len(strategies))
	for _, s := range strategies {
		out[s.Name()] = s
	}
	return out
}

// Lookup returns the strategy registered under name.
func (t Strategies) Lookup(name string) (Strategy, error) {
	s, ok := t[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return s, nil
}

// Names lists the registered strategy names in sorted order.
func (t Strategies) Names() []string {
	names := make([]string, 0, len(t))
	for n := range t {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
