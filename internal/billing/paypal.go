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

package billing

import "context"

// ProviderPayPal is the registry key of the PayPal processor.
const ProviderPayPal = "paypal"

// PayPalProcessor reserves the paypal key. No PayPal integration is
// configured, so every operation fails with ErrProviderNotSupported.
type PayPalProcessor struct{}

func (PayPalProcessor) Name() string { return ProviderPayPal }

func (PayPalProcessor) Enabled() bool { return false }

func (PayPalProcessor) SignatureHeader() string { return "Paypal-Transmission-Sig" }

func (PayPalProcessor) ParseWebhook(payload []byte, signature string) (*Event, error) {
	return nil, ErrProviderNotSupported
}

func (PayPalProcessor) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	return nil, ErrProviderNotSupported
}
