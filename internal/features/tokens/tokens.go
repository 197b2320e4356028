// Copyright 2025 Tom Barlow
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

// Package tokens is an illustrative feature that issues short-lived JWTs
// using the signing material credentials.Feature derives while privileges
// are elevated. It starts-after credentials and never needs elevation
// itself.
package tokens

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/relaykit/appserver/internal/features/credentials"
	"github.com/relaykit/appserver/pkg/appserver"
)

// Claims is the JWT claim set issued by this feature.
type Claims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scopes,omitempty"`
}

// Feature issues JWTs signed with the key handed over by credentials.
type Feature struct {
	*appserver.Base

	in     *credentials.Handoff
	issuer string
	signer []byte
	ttl    time.Duration
}

// New constructs the tokens feature, reading its signing key from in once
// credentials.Feature's prepare has run.
func New(in *credentials.Handoff) *Feature {
	f := &Feature{
		Base: appserver.NewBase("tokens", true),
		in:   in,
		ttl:  15 * time.Minute,
	}
	f.SetOptional(true)
	f.SetStartsAfter("credentials")
	f.SetRequires("credentials")
	return f
}

func (f *Feature) CollectOptions(opts *appserver.Options) {
	opts.AddSection("tokens", "Token issuance", false)
	opts.Flags().StringVar(&f.issuer, "tokens.issuer", "appserver", "issuer claim for issued tokens")
	opts.Track("tokens", "tokens.issuer")
}

func (f *Feature) Prepare() error {
	value, ok := f.in.Get()
	if !ok {
		return fmt.Errorf("tokens: credentials feature did not publish a signing key")
	}
	f.signer = []byte(value)
	return nil
}

// Issue signs a token for subject with the given scopes, valid for this
// feature's configured TTL.
func (f *Feature) Issue(subject string, scopes []string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    f.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(f.ttl)),
		},
		Scopes: scopes,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(f.signer)
}
