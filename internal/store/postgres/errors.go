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

package postgres

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// constraintError maps a PostgreSQL constraint violation to a domain error
// using the violated constraint's name. ok is false when err is not a
// constraint violation or the constraint is not in byConstraint.
func constraintError(err error, byConstraint map[string]error) (error, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil, false
	}
	if pgErr.Code != codeUniqueViolation && pgErr.Code != codeForeignKeyViolation {
		return nil, false
	}
	mapped, ok := byConstraint[pgErr.ConstraintName]
	return mapped, ok
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// validID reports whether s can be compared against a UUID column. Lookups
// with anything else are answered as not found without a round trip.
func validID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
