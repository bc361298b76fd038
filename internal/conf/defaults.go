// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("capture.source", "synthetic")

	viper.SetDefault("capture.video.capacity", 300)
	viper.SetDefault("capture.video.fps", 30)
	viper.SetDefault("capture.video.width", 640)
	viper.SetDefault("capture.video.height", 480)
	viper.SetDefault("capture.video.display", 0)
	viper.SetDefault("capture.video.bitrate", 2_000_000)

	viper.SetDefault("capture.audio.enabled", true)
	viper.SetDefault("capture.audio.capacity", 500)
	viper.SetDefault("capture.audio.samplerate", 44100)
	viper.SetDefault("capture.audio.channels", 2)
	viper.SetDefault("capture.audio.bitrate", 128_000)
	viper.SetDefault("capture.audio.device", "")

	viper.SetDefault("output.path", "recordings/")
	viper.SetDefault("output.session", "capture")
	viper.SetDefault("output.template", "{session}_{date}_{time}")
	viper.SetDefault("output.timeout", 2*time.Minute)
	viper.SetDefault("output.maxconcurrent", 1)
	viper.SetDefault("output.maxdiskusage", "95%")
	viper.SetDefault("output.retention.maxage", 0)
	viper.SetDefault("output.retention.minfiles", 10)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.listen", "127.0.0.1:8090")
	viper.SetDefault("webserver.maxconnections", 64)
	viper.SetDefault("webserver.ingestrate", 0)
	viper.SetDefault("webserver.ingestburst", 100)

	viper.SetDefault("database.enabled", true)
	viper.SetDefault("database.type", "sqlite")
	viper.SetDefault("database.path", "streampuffer.db")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", "3306")
	viper.SetDefault("database.mysql.username", "")
	viper.SetDefault("database.mysql.password", "")
	viper.SetDefault("database.mysql.passwordfile", "")
	viper.SetDefault("database.mysql.database", "streampuffer")

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.clientid", "")
	viper.SetDefault("mqtt.topic", "streampuffer/recordings")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.passwordfile", "")

	viper.SetDefault("notify.enabled", false)
	viper.SetDefault("notify.urls", []string{})
	viper.SetDefault("notify.timeout", 10*time.Second)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.dsnfile", "")

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/streampuffer.log")
	viper.SetDefault("logging.file_output.level", "info")
	viper.SetDefault("logging.file_output.max_size", 50)
	viper.SetDefault("logging.file_output.max_age", 30)
	viper.SetDefault("logging.file_output.max_rotated_files", 5)
	viper.SetDefault("logging.file_output.compress", true)
}
