package config

import (
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var CustomHooks = []viper.DecoderConfigOption{
	viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		LogLevelHookFunc(),
		DurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)),
}

// LogLevelHookFunc decodes level names such as "debug" into a logrus.Level.
func LogLevelHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		// check that src and target types are valid
		if f.Kind() != reflect.String || t != reflect.TypeOf(log.InfoLevel) {
			return data, nil
		}
		level, err := log.ParseLevel(data.(string))
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return level, nil
	}
}

// DurationHookFunc decodes plain numbers of seconds as well as duration strings.
func DurationHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch f.Kind() {
		case reflect.Int, reflect.Int64:
			return time.Duration(reflect.ValueOf(data).Int()) * time.Second, nil
		case reflect.String:
			d, err := time.ParseDuration(data.(string))
			return d, errors.WithStack(err)
		}
		return data, nil
	}
}
