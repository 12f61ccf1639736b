package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Email providers understood by the transport factory
const (
	ProviderGmail            = "gmail"
	ProviderGmailAppPassword = "gmail-app-password"
	ProviderSendGrid         = "sendgrid"
	ProviderSMTP             = "smtp"
	ProviderResend           = "resend"
)

// Reply detector providers
const (
	RepliesIMAP  = "imap"
	RepliesGmail = "gmail"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Email      EmailConfig      `mapstructure:"email"`
	Replies    RepliesConfig    `mapstructure:"replies"`
	Sending    SendingConfig    `mapstructure:"sending"`
	Followup   FollowupConfig   `mapstructure:"followup"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Profile    ProfileConfig    `mapstructure:"profile"`
	Compliance ComplianceConfig `mapstructure:"compliance"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// EmailConfig holds outbound delivery configuration
type EmailConfig struct {
	Provider         string        `mapstructure:"provider"`
	FromName         string        `mapstructure:"from_name"`
	FromEmail        string        `mapstructure:"from_email"`
	ReplyTo          string        `mapstructure:"reply_to"`
	GmailAppPassword string        `mapstructure:"gmail_app_password"`
	ClientID         string        `mapstructure:"client_id"`
	ClientSecret     string        `mapstructure:"client_secret"`
	RefreshToken     string        `mapstructure:"refresh_token"`
	SendGridAPIKey   string        `mapstructure:"sendgrid_api_key"`
	ResendAPIKey     string        `mapstructure:"resend_api_key"`
	SMTPHost         string        `mapstructure:"smtp_host"`
	SMTPPort         int           `mapstructure:"smtp_port"`
	SMTPUser         string        `mapstructure:"smtp_user"`
	SMTPPassword     string        `mapstructure:"smtp_password"`
	SendTimeout      time.Duration `mapstructure:"send_timeout"`
}

// RepliesConfig holds inbound mailbox configuration used for reply detection
type RepliesConfig struct {
	Provider     string `mapstructure:"provider"`
	IMAPHost     string `mapstructure:"imap_host"`
	IMAPPort     int    `mapstructure:"imap_port"`
	IMAPUser     string `mapstructure:"imap_user"`
	IMAPPassword string `mapstructure:"imap_password"`
	Mailbox      string `mapstructure:"mailbox"`
}

// SendingConfig holds the send window and rate limits
type SendingConfig struct {
	DailyLimit         int      `mapstructure:"daily_limit"`
	MinIntervalMinutes int      `mapstructure:"min_interval_minutes"`
	MaxIntervalMinutes int      `mapstructure:"max_interval_minutes"`
	WindowStart        string   `mapstructure:"window_start"`
	WindowEnd          string   `mapstructure:"window_end"`
	Timezone           string   `mapstructure:"timezone"`
	SendDays           []string `mapstructure:"send_days"`
	BatchSize          int      `mapstructure:"batch_size"`
	InitialTemplate    string   `mapstructure:"initial_template"`
}

// FollowupConfig holds the follow-up cadence
type FollowupConfig struct {
	FirstFollowupDays  int  `mapstructure:"first_followup_days"`
	SecondFollowupDays int  `mapstructure:"second_followup_days"`
	FinalFollowupDays  int  `mapstructure:"final_followup_days"`
	MaxFollowups       int  `mapstructure:"max_followups"`
	CancelOnReply      bool `mapstructure:"cancel_on_reply"`
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	IntervalMinutes   int  `mapstructure:"interval_minutes"`
	ReplyCheckMinutes int  `mapstructure:"reply_check_minutes"`
	AutoStart         bool `mapstructure:"auto_start"`
}

// ProfileConfig holds sender details merged into every template
type ProfileConfig struct {
	Name            string `mapstructure:"name"`
	Title           string `mapstructure:"title"`
	Skill           string `mapstructure:"skill"`
	Specialty       string `mapstructure:"specialty"`
	YearsExperience int    `mapstructure:"years_experience"`
	LinkedIn        string `mapstructure:"linkedin"`
	Portfolio       string `mapstructure:"portfolio"`
	GitHub          string `mapstructure:"github"`
}

// ComplianceConfig holds settings delegated to the transport
type ComplianceConfig struct {
	IncludeUnsubscribe bool `mapstructure:"include_unsubscribe"`
}

// LoadConfig loads configuration from .env, environment variables and config file
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.AutomaticEnv()
	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)
	viper.SetDefault("database.dbname", "outreach")

	viper.SetDefault("email.provider", ProviderGmail)
	viper.SetDefault("email.from_name", "Your Name")
	viper.SetDefault("email.smtp_port", 587)
	viper.SetDefault("email.send_timeout", "60s")

	viper.SetDefault("replies.provider", RepliesIMAP)
	viper.SetDefault("replies.imap_host", "imap.gmail.com")
	viper.SetDefault("replies.imap_port", 993)
	viper.SetDefault("replies.mailbox", "INBOX")

	viper.SetDefault("sending.daily_limit", 25)
	viper.SetDefault("sending.min_interval_minutes", 5)
	viper.SetDefault("sending.max_interval_minutes", 15)
	viper.SetDefault("sending.window_start", "09:00")
	viper.SetDefault("sending.window_end", "17:00")
	viper.SetDefault("sending.timezone", "America/Los_Angeles")
	viper.SetDefault("sending.send_days", []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"})
	viper.SetDefault("sending.batch_size", 10)
	viper.SetDefault("sending.initial_template", "cold_general")

	viper.SetDefault("followup.first_followup_days", 4)
	viper.SetDefault("followup.second_followup_days", 10)
	viper.SetDefault("followup.final_followup_days", 18)
	viper.SetDefault("followup.max_followups", 3)
	viper.SetDefault("followup.cancel_on_reply", false)

	viper.SetDefault("scheduler.interval_minutes", 15)
	viper.SetDefault("scheduler.reply_check_minutes", 60)
	viper.SetDefault("scheduler.auto_start", true)

	viper.SetDefault("compliance.include_unsubscribe", true)
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	// Server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	// Database
	viper.BindEnv("database.host", "DB_HOST")
	viper.BindEnv("database.port", "DB_PORT")
	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("database.dbname", "DB_NAME")

	// Email
	viper.BindEnv("email.provider", "EMAIL_PROVIDER")
	viper.BindEnv("email.from_name", "FROM_NAME")
	viper.BindEnv("email.from_email", "FROM_EMAIL")
	viper.BindEnv("email.reply_to", "REPLY_TO")
	viper.BindEnv("email.gmail_app_password", "GMAIL_APP_PASSWORD")
	viper.BindEnv("email.client_id", "GMAIL_CLIENT_ID")
	viper.BindEnv("email.client_secret", "GMAIL_CLIENT_SECRET")
	viper.BindEnv("email.refresh_token", "GMAIL_REFRESH_TOKEN")
	viper.BindEnv("email.sendgrid_api_key", "SENDGRID_API_KEY")
	viper.BindEnv("email.resend_api_key", "RESEND_API_KEY")
	viper.BindEnv("email.smtp_host", "SMTP_HOST")
	viper.BindEnv("email.smtp_port", "SMTP_PORT")
	viper.BindEnv("email.smtp_user", "SMTP_USER")
	viper.BindEnv("email.smtp_password", "SMTP_PASSWORD")
	viper.BindEnv("email.send_timeout", "EMAIL_SEND_TIMEOUT")

	// Replies
	viper.BindEnv("replies.provider", "REPLIES_PROVIDER")
	viper.BindEnv("replies.imap_host", "IMAP_HOST")
	viper.BindEnv("replies.imap_port", "IMAP_PORT")
	viper.BindEnv("replies.imap_user", "IMAP_USER")
	viper.BindEnv("replies.imap_password", "IMAP_PASSWORD")

	// Sending
	viper.BindEnv("sending.daily_limit", "DAILY_LIMIT")
	viper.BindEnv("sending.timezone", "SEND_TIMEZONE")
	viper.BindEnv("sending.send_days", "SEND_DAYS")
	viper.BindEnv("sending.batch_size", "SEND_BATCH_SIZE")

	// Scheduler
	viper.BindEnv("scheduler.interval_minutes", "SCHEDULER_INTERVAL_MINUTES")
	viper.BindEnv("scheduler.reply_check_minutes", "SCHEDULER_REPLY_CHECK_MINUTES")
	viper.BindEnv("scheduler.auto_start", "SCHEDULER_AUTO_START")

	// Profile
	viper.BindEnv("profile.name", "FROM_NAME")
	viper.BindEnv("profile.title", "YOUR_TITLE")
	viper.BindEnv("profile.skill", "YOUR_SKILL")
	viper.BindEnv("profile.specialty", "YOUR_SPECIALTY")
	viper.BindEnv("profile.years_experience", "YEARS_EXPERIENCE")
	viper.BindEnv("profile.linkedin", "YOUR_LINKEDIN")
	viper.BindEnv("profile.portfolio", "YOUR_PORTFOLIO")
	viper.BindEnv("profile.github", "YOUR_GITHUB")
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// IMAPCredentials returns the mailbox login, falling back to the sender account
func (c *Config) IMAPCredentials() (string, string) {
	user, pass := c.Replies.IMAPUser, c.Replies.IMAPPassword
	if user == "" {
		user = c.Email.FromEmail
	}
	if pass == "" {
		pass = c.Email.GmailAppPassword
	}
	return user, pass
}

// TemplateDefaults returns the sender values merged into every template
func (c *Config) TemplateDefaults() map[string]string {
	name := c.Profile.Name
	if name == "" {
		name = c.Email.FromName
	}
	defaults := map[string]string{
		"your_name":      name,
		"your_title":     c.Profile.Title,
		"your_skill":     c.Profile.Skill,
		"your_specialty": c.Profile.Specialty,
		"your_email":     c.Email.FromEmail,
		"your_linkedin":  c.Profile.LinkedIn,
		"your_portfolio": c.Profile.Portfolio,
		"your_github":    c.Profile.GitHub,
	}
	if c.Profile.YearsExperience > 0 {
		defaults["years_experience"] = strconv.Itoa(c.Profile.YearsExperience)
	}
	if c.Compliance.IncludeUnsubscribe {
		defaults["unsubscribe"] = "true"
	}
	return defaults
}

// FollowupOffsetDays returns the configured days after the initial send for
// a follow-up ordinal.
func (c *FollowupConfig) FollowupOffsetDays(ordinal int) int {
	switch {
	case ordinal <= 1:
		return c.FirstFollowupDays
	case ordinal == 2:
		return c.SecondFollowupDays
	default:
		return c.FinalFollowupDays
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return fmt.Errorf("database host, user, and dbname are required")
	}

	if err := c.Email.Validate(); err != nil {
		return err
	}

	if err := c.Sending.Validate(); err != nil {
		return err
	}

	if c.Followup.MaxFollowups < 0 {
		return fmt.Errorf("max_followups must not be negative")
	}

	if c.Scheduler.IntervalMinutes <= 0 {
		return fmt.Errorf("scheduler interval must be greater than 0")
	}

	switch c.Replies.Provider {
	case RepliesIMAP, RepliesGmail, "":
	default:
		return fmt.Errorf("unknown replies provider: %s", c.Replies.Provider)
	}

	return nil
}

// Validate validates the delivery credentials for the selected provider
func (c *EmailConfig) Validate() error {
	if c.FromEmail == "" {
		return fmt.Errorf("FROM_EMAIL is required")
	}

	switch c.Provider {
	case ProviderGmail:
		if c.ClientID == "" || c.ClientSecret == "" || c.RefreshToken == "" {
			return fmt.Errorf("Gmail OAuth2 credentials are required for the gmail provider")
		}
	case ProviderGmailAppPassword:
		if c.GmailAppPassword == "" {
			return fmt.Errorf("GMAIL_APP_PASSWORD is required")
		}
	case ProviderSendGrid:
		if c.SendGridAPIKey == "" {
			return fmt.Errorf("SENDGRID_API_KEY is required")
		}
	case ProviderSMTP:
		if c.SMTPHost == "" || c.SMTPPort == 0 {
			return fmt.Errorf("SMTP host and port are required")
		}
	case ProviderResend:
		if c.ResendAPIKey == "" {
			return fmt.Errorf("RESEND_API_KEY is required")
		}
	default:
		return fmt.Errorf("unknown email provider: %s", c.Provider)
	}

	return nil
}

// Validate validates limits and the send window
func (c *SendingConfig) Validate() error {
	if c.DailyLimit <= 0 {
		return fmt.Errorf("daily_limit must be greater than 0")
	}
	if c.DailyLimit > 100 {
		return fmt.Errorf("daily_limit should not exceed 100 to avoid spam detection")
	}
	if c.MinIntervalMinutes < 0 || c.MaxIntervalMinutes < c.MinIntervalMinutes {
		return fmt.Errorf("invalid send interval %d-%d minutes", c.MinIntervalMinutes, c.MaxIntervalMinutes)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be greater than 0")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if len(c.SendDays) == 0 {
		return fmt.Errorf("at least one send day is required")
	}
	return nil
}
