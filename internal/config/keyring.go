/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import "github.com/zalando/go-keyring"

// Service/keys for the OS keychain.
const (
	keyringService = "GoScreenwriter"
	keyringDSN     = "backend_dsn"
)

// SecretStore abstracts the keychain so tests can stub it.
type SecretStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var secretStore SecretStore = osKeyring{}

// osKeyring stores secrets through github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// DeleteDSN removes the stored backend DSN from the keychain.
func DeleteDSN() error {
	err := secretStore.Delete(keyringService, keyringDSN)
	if err == keyring.ErrNotFound {
		return nil
	}
	return err
}

// SaveDSN stores the backend DSN in the keychain.
func SaveDSN(dsn string) error {
	if dsn == "" {
		return DeleteDSN()
	}
	return secretStore.Set(keyringService, keyringDSN, dsn)
}
