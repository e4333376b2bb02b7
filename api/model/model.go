/*
Copyright 2025 GridRank Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// TopUpRequest grants credits to an account. Reference is the caller's
// idempotency key; retried requests with the same reference are applied once.
type TopUpRequest struct {
	Amount    int64                  `json:"amount"`
	Reference string                 `json:"reference"`
	MetaData  map[string]interface{} `json:"meta_data"`
}

func (t *TopUpRequest) ValidateTopUpRequest() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Amount, validation.Required, validation.Min(1)),
		validation.Field(&t.Reference, validation.Required),
	)
}
