package config

import (
	"fmt"
	"time"

	"github.com/harborlab/shipsim/internal/geo"
	"github.com/harborlab/shipsim/pkg/core"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "shipsim.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
	RetainRuns     int    `json:"retainRuns" mapstructure:"retainRuns"`
}

// FileConfig holds settings for the file scenario store.
type FileConfig struct {
	Dir    string `json:"dir" mapstructure:"dir"`
	Format string `json:"format" mapstructure:"format"`
}

// SQLiteConfig holds settings for the SQLite backend.
type SQLiteConfig struct {
	Path         string        `json:"path" mapstructure:"path"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// PostgresConfig holds connection settings for the Postgres backend.
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// DSN returns the lib/pq style connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		p.Host, p.Port, p.Username, p.Password, p.Database)
}

// WebSocketConfig holds settings for the run streaming backend.
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the scenario store and run recorder.
type StorageConfig struct {
	Type         string          `json:"type" mapstructure:"type"`
	ScenarioName string          `json:"scenarioName" mapstructure:"scenarioName"`
	File         FileConfig      `json:"file" mapstructure:"file"`
	Memory       MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite       SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	Postgres     PostgresConfig  `json:"postgres" mapstructure:"postgres"`
	WebSocket    WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// ManeuverConfig holds two-ship session settings.
type ManeuverConfig struct {
	Dt         float64
	Retrigger  core.Retrigger
	Strategy   string
	EventLimit int
	Scenario   core.Scenario
}

// InfluxConfig holds InfluxDB run metric settings.
type InfluxConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Protocol string
	Token    string
	Org      string
	Bucket   string
	Backup   string
}

// URL returns the server URL.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// UploadConfig holds settings for pushing exported runs to the viewer.
type UploadConfig struct {
	Enabled   bool
	ServerURL string
	APIKey    string
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// LoadDefaults applies the default values without reading a file.
func LoadDefaults() {
	setDefaults()
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./shiplogs")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	sw := core.DefaultSwarmConfig()
	viper.SetDefault("swarm.ships", sw.Ships)
	viper.SetDefault("swarm.weather", string(sw.Weather))
	viper.SetDefault("swarm.class", string(sw.Class))
	viper.SetDefault("swarm.speed", sw.Speed)
	viper.SetDefault("swarm.terrain", string(sw.Terrain))
	viper.SetDefault("swarm.mapSize", sw.MapSize)
	viper.SetDefault("swarm.border", sw.Border)
	viper.SetDefault("swarm.islands", sw.Islands)
	viper.SetDefault("swarm.shoals", sw.Shoals)
	viper.SetDefault("swarm.islandRadius", sw.IslandRadius)
	viper.SetDefault("swarm.steps", sw.Steps)
	viper.SetDefault("swarm.dt", sw.Dt)
	viper.SetDefault("swarm.avoidRadius", sw.AvoidRadius)
	viper.SetDefault("swarm.collisionRadius", sw.CollisionRadius)
	viper.SetDefault("swarm.arrivalRadius", sw.ArrivalRadius)
	viper.SetDefault("swarm.maxBatchRuns", 1000)

	sc := core.DefaultScenario()
	viper.SetDefault("maneuver.dt", 0.1)
	viper.SetDefault("maneuver.retrigger", string(core.RetriggerLatched))
	viper.SetDefault("maneuver.strategy", "sat")
	viper.SetDefault("maneuver.eventLimit", 256)
	viper.SetDefault("maneuver.scenario", map[string]any{
		"ship1":          shipDefaults(sc.Ship1),
		"ship2":          shipDefaults(sc.Ship2),
		"turn_distance":  sc.TurnDistance,
		"turn_direction": string(sc.TurnDirection),
	})

	viper.SetDefault("storage.type", "file")
	viper.SetDefault("storage.scenarioName", "ship_state")
	viper.SetDefault("storage.file.dir", ".")
	viper.SetDefault("storage.file.format", "json")
	viper.SetDefault("storage.memory.outputDir", "./runs")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.memory.retainRuns", 32)
	viper.SetDefault("storage.sqlite.path", "")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "")
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.username", "postgres")
	viper.SetDefault("storage.postgres.password", "postgres")
	viper.SetDefault("storage.postgres.database", "shipsim")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "shipsim")
	viper.SetDefault("influx.bucket", "runs")
	viper.SetDefault("influx.backup", "./shiplogs/influx_backup.lp.gz")

	viper.SetDefault("upload.enabled", false)
	viper.SetDefault("upload.serverUrl", "http://localhost:5000")
	viper.SetDefault("upload.apiKey", "")

	viper.SetDefault("geo.origin", "4.4792,51.9225")
	viper.SetDefault("geo.metresPerUnit", 10.0)
}

func shipDefaults(p core.ShipParams) map[string]any {
	return map[string]any{
		"x": p.X, "y": p.Y, "vx": p.VX, "vy": p.VY,
		"length": p.Length, "width": p.Width,
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetSwarmConfig returns the default swarm run parameters. The result is not
// validated; callers pass it through core.SwarmConfig.Validate.
func GetSwarmConfig() core.SwarmConfig {
	return core.SwarmConfig{
		Ships:           viper.GetInt("swarm.ships"),
		Weather:         core.Weather(viper.GetString("swarm.weather")),
		Class:           core.VesselClass(viper.GetString("swarm.class")),
		Speed:           viper.GetFloat64("swarm.speed"),
		Terrain:         core.Terrain(viper.GetString("swarm.terrain")),
		MapSize:         viper.GetInt("swarm.mapSize"),
		Border:          viper.GetInt("swarm.border"),
		Islands:         viper.GetInt("swarm.islands"),
		Shoals:          viper.GetInt("swarm.shoals"),
		IslandRadius:    viper.GetFloat64("swarm.islandRadius"),
		Steps:           viper.GetInt("swarm.steps"),
		Dt:              viper.GetFloat64("swarm.dt"),
		AvoidRadius:     viper.GetFloat64("swarm.avoidRadius"),
		CollisionRadius: viper.GetFloat64("swarm.collisionRadius"),
		ArrivalRadius:   viper.GetFloat64("swarm.arrivalRadius"),
	}
}

// GetMaxBatchRuns returns the largest run count one batch may request.
func GetMaxBatchRuns() int {
	return viper.GetInt("swarm.maxBatchRuns")
}

// GetManeuverConfig returns the two-ship session settings including the
// initial scenario.
func GetManeuverConfig() (ManeuverConfig, error) {
	retrigger, err := core.ParseRetrigger(viper.GetString("maneuver.retrigger"))
	if err != nil {
		return ManeuverConfig{}, err
	}
	sc, err := core.ScenarioFromMap(viper.GetStringMap("maneuver.scenario"))
	if err != nil {
		return ManeuverConfig{}, fmt.Errorf("maneuver.scenario: %w", err)
	}
	return ManeuverConfig{
		Dt:         viper.GetFloat64("maneuver.dt"),
		Retrigger:  retrigger,
		Strategy:   viper.GetString("maneuver.strategy"),
		EventLimit: viper.GetInt("maneuver.eventLimit"),
		Scenario:   sc,
	}, nil
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:         viper.GetString("storage.type"),
		ScenarioName: viper.GetString("storage.scenarioName"),
		File: FileConfig{
			Dir:    viper.GetString("storage.file.dir"),
			Format: viper.GetString("storage.file.format"),
		},
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
			RetainRuns:     viper.GetInt("storage.memory.retainRuns"),
		},
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("storage.postgres.host"),
			Port:     viper.GetString("storage.postgres.port"),
			Username: viper.GetString("storage.postgres.username"),
			Password: viper.GetString("storage.postgres.password"),
			Database: viper.GetString("storage.postgres.database"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
		Backup:   viper.GetString("influx.backup"),
	}
}

// GetUploadConfig returns the run upload settings.
func GetUploadConfig() UploadConfig {
	return UploadConfig{
		Enabled:   viper.GetBool("upload.enabled"),
		ServerURL: viper.GetString("upload.serverUrl"),
		APIKey:    viper.GetString("upload.apiKey"),
	}
}

// GetGeoConfig returns the georeference used when exporting tracks.
func GetGeoConfig() (geo.Reference, error) {
	origin, err := geo.Vec2FromString(viper.GetString("geo.origin"))
	if err != nil {
		return geo.Reference{}, fmt.Errorf("geo.origin: %w", err)
	}
	return geo.NewReference(origin.X, origin.Y, viper.GetFloat64("geo.metresPerUnit"))
}
