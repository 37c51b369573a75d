package sparkbatch

import (
	"os"

	"github.com/magiconair/properties"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func loadConfig() {
	viper.SetConfigName("sparkbatchrc")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.sparkbatch")

	setupDefaults()

	err := viper.ReadInConfig()
	if err != nil {
		log.Debugf("Config Read %+v", err)
	}

	mergeProperties(viper.GetString("propertiesFile"))

	viper.SetEnvPrefix("sparkbatch")
	viper.AutomaticEnv()
}

// mergeProperties layers a flat Java-style properties file over the
// configuration. These files are the configuration surface batch
// deployments typically ship with.
func mergeProperties(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		log.Debugf("no properties file at %s", path)
		return
	}

	props, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		log.Warnf("could not read properties file %s - %s", path, err)
		return
	}

	settings := make(map[string]interface{}, props.Len())
	for _, key := range props.Keys() {
		settings[key] = props.MustGet(key)
	}
	if err := viper.MergeConfigMap(settings); err != nil {
		log.Warnf("could not merge properties file %s - %s", path, err)
		return
	}
	log.Debugf("merged %d properties from %s", props.Len(), path)
}

func setupDefaults() {
	defaultSettings := map[string]interface{}{
		"appName":         "sparkbatch",
		"master":          "yarn",
		"deployMode":      "cluster",
		"sparkHome":       "",
		"pigHome":         "",
		"namenodeAddress": "localhost:8020",
		"hdfsUser":        "",
		"executorMemory":  "1G",
		"executorCount":   1,
		"maxConcurrency":  4, // concurrent independent workflow runs
		"workingLocation": ".",
		"propertiesFile":  "batch.properties",
		"verbose":         false,
	}
	for key, value := range defaultSettings {
		viper.SetDefault(key, value)
	}

	aliases := map[string]string{
		"verbose":          "v",
		"working_location": "o",
		"executorMemory":   "m",
	}
	for key, alias := range aliases {
		viper.RegisterAlias(alias, key)
	}
}
