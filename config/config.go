package config

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
)

type Config struct {
	MinIOBucket    string         `yaml:"minio_bucket"`
	App            App            `yaml:"app"`
	DB             *sql.DB        `yaml:"db"`
	Queue          *RabbitMQ      `yaml:"rabbitmq"`
	Storage        *minio.Client  `yaml:"storage"`
	Server         Server         `yaml:"server"`
	SessionService SessionService `yaml:"session_service"`
	Recorder       Recorder       `yaml:"recorder"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
	Workers  int    `yaml:"workers"`
}

type RabbitMQ struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Pass         string `json:"pass"`
	ExchangeName string `json:"exchange_name"`
	Kind         string `json:"kind"`
}

// SessionService describes the remote session backend and how outgoing calls
// are signed.
type SessionService struct {
	BaseURL       string        `yaml:"base_url"`
	SigningSecret string        `yaml:"signing_secret"`
	Timeout       time.Duration `yaml:"timeout"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
}

// Recorder describes the external recording service.
type Recorder struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetDefault("session_service.timeout", "10s")
	viper.SetDefault("session_service.token_ttl", "5m")
	viper.SetDefault("recorder.timeout", "15s")
	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", viper.GetString("postgresql_host"))
	if err != nil {
		return nil, err
	}

	rabbitmq := &RabbitMQ{
		Host:         viper.GetString("rabbitmq_host"),
		Port:         viper.GetInt("rabbitmq_port"),
		User:         viper.GetString("rabbitmq_user"),
		Pass:         viper.GetString("rabbitmq_pass"),
		ExchangeName: viper.GetString("rabbitmq_exchange"),
		Kind:         viper.GetString("rabbitmq_kind"),
	}

	minioClient, err := minio.New(viper.GetString("minio.url"), &minio.Options{
		Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}

	return &Config{
		MinIOBucket: viper.GetString("minio.bucket"),
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
			Protocol:    viper.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: viper.GetString("server.port"),
			Workers:  viper.GetInt("server.workers"),
		},
		SessionService: SessionService{
			BaseURL:       viper.GetString("session_service.base_url"),
			SigningSecret: viper.GetString("session_service.signing_secret"),
			Timeout:       viper.GetDuration("session_service.timeout"),
			TokenTTL:      viper.GetDuration("session_service.token_ttl"),
		},
		Recorder: Recorder{
			BaseURL: viper.GetString("recorder.base_url"),
			Timeout: viper.GetDuration("recorder.timeout"),
		},
		DB:      db,
		Queue:   rabbitmq,
		Storage: minioClient,
	}, nil
}
