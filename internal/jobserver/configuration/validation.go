package configuration

import (
	"github.com/go-playground/validator/v10"

	commonconfig "github.com/cqnkjsx/htcondor/internal/common/config"
)

func (c JobServerConfig) Validate() error {
	return commonconfig.Validate(c, commonconfig.StructLevelValidation{
		Fn:    redisPublishValidation,
		Types: []interface{}{RedisPublishConfig{}},
	})
}

// The redis connection is only validated when publication is enabled.
func redisPublishValidation(sl validator.StructLevel) {
	c := sl.Current().Interface().(RedisPublishConfig)
	if !c.Enabled {
		return
	}
	if len(c.Connection.Addrs) == 0 {
		sl.ReportError(c.Connection.Addrs, "Addrs", "Addrs", "required", "")
	}
	if c.Connection.PoolSize <= 0 {
		sl.ReportError(c.Connection.PoolSize, "PoolSize", "PoolSize", "required", "")
	}
	if c.PublishInterval <= 0 {
		sl.ReportError(c.PublishInterval, "PublishInterval", "PublishInterval", "gt", "0")
	}
}
