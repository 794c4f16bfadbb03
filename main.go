package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/penny-vault/pv-nav/cmd"
)

func configureViper() {
	// read config file
	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	viper.AddConfigPath("/etc/pv-nav/")
	viper.AddConfigPath("$HOME/.config/pv-nav")
	viper.AddConfigPath(".")

	err := viper.ReadInConfig() // Find and read the config file
	if err != nil {
		// flags and environment variables are enough to run without a file
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "fatal error config file: %v\n", err)
			os.Exit(1)
		}
	}
}

func main() {
	configureViper()
	cmd.Execute()
}
