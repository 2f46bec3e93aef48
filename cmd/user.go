/*
Copyright © 2021 Edmond Cotterell

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
package cmd

import (
	"strings"

	"github.com/Daskott/phonebook/server"
	"github.com/Daskott/phonebook/server/models"
	"github.com/spf13/cobra"
)

// openStore opens the database the server uses. Tests replace it.
var openStore = func() (*models.Store, error) {
	config, err := serverConfig()
	if err != nil {
		return nil, err
	}

	serverConfig, err := server.LoadConfig(config)
	if err != nil {
		return nil, err
	}

	dataDir, err := server.DataDirectory(isDevEnv)
	if err != nil {
		return nil, err
	}

	return models.Open(serverConfig.Sqlite.PassPhrase, dataDir)
}

func createUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage phonebook login accounts",
	}

	cmd.AddCommand(createUserAddCmd())
	return cmd
}

func createUserAddCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a login account",
		Long:  `Create an account that can log in to the phonebook server, e.g. phonebook user add --email me@example.com --password secret`,
		RunE: func(cmd *cobra.Command, args []string) error {
			validate, err := server.NewValidator()
			if err != nil {
				return err
			}

			if validate.Var(email, "required,email,max=255") != nil {
				return formattedError("invalid email %q", email)
			}
			if validate.Var(password, "required,password") != nil {
				return formattedError("password must not be empty or contain whitespace")
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			_, err = store.FindUserBy("email", strings.ToLower(strings.TrimSpace(email)))
			if err == nil {
				return formattedError("user %s already exists", email)
			}
			if !models.IsNotFound(err) {
				return err
			}

			user := &models.User{Email: email, Password: password}
			if err := store.CreateUser(user); err != nil {
				return err
			}

			cmd.Printf("user %s created\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email used to log in")
	cmd.Flags().StringVar(&password, "password", "", "password used to log in")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")

	return cmd
}
