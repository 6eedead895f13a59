// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package commands

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of the environment variables overriding
// configuration values, for example JELLYFISH_STATE_BACKEND.
const EnvPrefix = "JELLYFISH"

// newViper creates a viper instance reading environment
// variables with the prefix given.
func newViper(envPrefix string) *viper.Viper {
	copyEnvVars(envPrefix)

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.SetConfigType("toml")
	return v
}

// copyEnvVars copies all envs like JELLYFISHSTATE_BACKEND to
// JELLYFISH_STATE_BACKEND, so we can support both formats.
func copyEnvVars(prefix string) {
	prefix = strings.ToUpper(prefix)
	ps := prefix + "_"
	for _, e := range os.Environ() {
		kv := strings.SplitN(e, "=", 2)
		if len(kv) == 2 {
			k, v := kv[0], kv[1]
			if strings.HasPrefix(k, prefix) && !strings.HasPrefix(k, ps) {
				k2 := strings.Replace(k, prefix, ps, 1)
				os.Setenv(k2, v)
			}
		}
	}
}
