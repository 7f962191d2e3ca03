package hook

import (
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap/zapcore"
)

var levelType = reflect.TypeOf(zapcore.InfoLevel)

// Level decodes strings such as "debug" or "WARN" into a zapcore.Level.
func Level() mapstructure.DecodeHookFuncType {
	return func(in reflect.Type, out reflect.Type, val interface{}) (interface{}, error) {
		if in.Kind() != reflect.String || out != levelType {
			return val, nil
		}
		l := zapcore.InfoLevel
		if s := strings.TrimSpace(val.(string)); s != "" {
			if err := l.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
				return nil, err
			}
		}
		return l, nil
	}
}
