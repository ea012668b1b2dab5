package config

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	var (
		tempDir    string
		configFile string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test")
		Expect(err).NotTo(HaveOccurred())
		configFile = filepath.Join(tempDir, "config.yaml")
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	Describe("Load", func() {
		Context("when config file exists with valid content", func() {
			BeforeEach(func() {
				validConfig := `
server:
  port: "8080"
  metrics_port: "9090"

database:
  host: "db.internal"
  port: 5432
  user: "buildcore"
  password: "secret"
  name: "buildcore"
  ssl_mode: "require"
  max_open_conns: 25
  max_idle_conns: 5

redis:
  addr: "redis.internal:6379"
  db: 2
  lock_ttl: "10m"

executor:
  timeout: "45s"
  tick_queue_depth: 512

logging:
  level: "info"
  development: false
`
				err := os.WriteFile(configFile, []byte(validConfig), 0644)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should load configuration successfully", func() {
				cfg, err := Load(configFile)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg).NotTo(BeNil())

				Expect(cfg.Server.Port).To(Equal("8080"))
				Expect(cfg.Server.MetricsPort).To(Equal("9090"))

				Expect(cfg.Database.Host).To(Equal("db.internal"))
				Expect(cfg.Database.Port).To(Equal(5432))
				Expect(cfg.Database.User).To(Equal("buildcore"))
				Expect(cfg.Database.SSLMode).To(Equal("require"))

				Expect(cfg.Redis.Addr).To(Equal("redis.internal:6379"))
				Expect(cfg.Redis.DB).To(Equal(2))
				Expect(cfg.Redis.LockTTL).To(Equal(10 * time.Minute))

				Expect(cfg.Executor.Timeout).To(Equal(45 * time.Second))
				Expect(cfg.Executor.TickQueueDepth).To(Equal(512))

				Expect(cfg.Logging.Level).To(Equal("info"))
			})
		})

		Context("when config file has minimal content", func() {
			BeforeEach(func() {
				minimalConfig := `
database:
  host: "localhost"
`
				err := os.WriteFile(configFile, []byte(minimalConfig), 0644)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should load with defaults for missing values", func() {
				cfg, err := Load(configFile)
				Expect(err).NotTo(HaveOccurred())

				Expect(cfg.Server.Port).To(Equal("8080"))
				Expect(cfg.Database.Name).To(Equal("buildcore"))
				Expect(cfg.Database.MaxOpenConns).To(Equal(25))
				Expect(cfg.Executor.Timeout).To(Equal(30 * time.Second))
				Expect(cfg.Logging.Level).To(Equal("info"))
			})
		})

		Context("when config file does not exist", func() {
			It("should return an error", func() {
				_, err := Load("/nonexistent/config.yaml")
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to read config file"))
			})
		})

		Context("when config file has invalid YAML", func() {
			BeforeEach(func() {
				invalidConfig := `
server:
  port: "8080"
  invalid_yaml: [
database:
  host: "test"
`
				err := os.WriteFile(configFile, []byte(invalidConfig), 0644)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return an error", func() {
				_, err := Load(configFile)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to parse config file"))
			})
		})

		Context("when config has an invalid duration format", func() {
			BeforeEach(func() {
				invalidDurationConfig := `
database:
  host: "localhost"

executor:
  timeout: "not-a-duration"
`
				err := os.WriteFile(configFile, []byte(invalidDurationConfig), 0644)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return an error", func() {
				_, err := Load(configFile)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to parse config file"))
			})
		})
	})

	Describe("validate", func() {
		var cfg *Config

		BeforeEach(func() {
			cfg = &Config{
				Server:   ServerConfig{Port: "8080", MetricsPort: "9090"},
				Database: DatabaseConfig{Host: "localhost", Port: 5432, User: "buildcore", Name: "buildcore"},
				Executor: ExecutorConfig{Timeout: 30 * time.Second},
				Logging:  LoggingConfig{Level: "info"},
			}
		})

		Context("when config is valid", func() {
			It("should pass validation", func() {
				Expect(validate(cfg)).To(Succeed())
			})
		})

		Context("when database host is missing", func() {
			BeforeEach(func() { cfg.Database.Host = "" })

			It("should return a validation error", func() {
				err := validate(cfg)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("database host is required"))
			})
		})

		Context("when database port is out of range", func() {
			BeforeEach(func() { cfg.Database.Port = 70000 })

			It("should return a validation error", func() {
				err := validate(cfg)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("database port must be between 1 and 65535"))
			})
		})

		Context("when database user is missing", func() {
			BeforeEach(func() { cfg.Database.User = "" })

			It("should return a validation error", func() {
				err := validate(cfg)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("database user is required"))
			})
		})

		Context("when executor timeout is zero", func() {
			BeforeEach(func() { cfg.Executor.Timeout = 0 })

			It("should return a validation error", func() {
				err := validate(cfg)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("executor timeout must be greater than 0"))
			})
		})

		Context("when logging level is unsupported", func() {
			BeforeEach(func() { cfg.Logging.Level = "verbose" })

			It("should return a validation error", func() {
				err := validate(cfg)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("unsupported logging level"))
			})
		})
	})

	Describe("loadFromEnv", func() {
		var cfg *Config

		BeforeEach(func() {
			cfg = &Config{}
			os.Clearenv()
		})

		AfterEach(func() {
			os.Clearenv()
		})

		Context("when environment variables are set", func() {
			BeforeEach(func() {
				os.Setenv("DB_HOST", "env-host")
				os.Setenv("DB_PORT", "6543")
				os.Setenv("DB_USER", "env-user")
				os.Setenv("DB_NAME", "env-db")
				os.Setenv("SERVER_PORT", "3000")
				os.Setenv("METRICS_PORT", "9999")
				os.Setenv("LOG_LEVEL", "debug")
			})

			It("should load values from the environment", func() {
				Expect(loadFromEnv(cfg)).To(Succeed())

				Expect(cfg.Database.Host).To(Equal("env-host"))
				Expect(cfg.Database.Port).To(Equal(6543))
				Expect(cfg.Database.User).To(Equal("env-user"))
				Expect(cfg.Database.Name).To(Equal("env-db"))
				Expect(cfg.Server.Port).To(Equal("3000"))
				Expect(cfg.Server.MetricsPort).To(Equal("9999"))
				Expect(cfg.Logging.Level).To(Equal("debug"))
			})
		})

		Context("when DB_PORT is not a number", func() {
			BeforeEach(func() {
				os.Setenv("DB_PORT", "not-a-number")
			})

			It("should return an error", func() {
				err := loadFromEnv(cfg)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("invalid DB_PORT"))
			})
		})

		Context("when no environment variables are set", func() {
			It("should not modify the config", func() {
				original := *cfg
				Expect(loadFromEnv(cfg)).To(Succeed())
				Expect(*cfg).To(Equal(original))
			})
		})
	})
})
