package config

import (
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid config",
			config: Config{
				GitHub: GitHubConfig{
					Repository: "triagehq/widgets",
				},
				Bot: BotConfig{
					Handle: "@label-bot",
				},
			},
			wantErr: false,
		},
		{
			name: "missing repository",
			config: Config{
				Bot: BotConfig{
					Handle: "@label-bot",
				},
			},
			wantErr: true,
			errMsg:  "repository is required",
		},
		{
			name: "repository without owner",
			config: Config{
				GitHub: GitHubConfig{
					Repository: "widgets",
				},
				Bot: BotConfig{
					Handle: "@label-bot",
				},
			},
			wantErr: true,
			errMsg:  "must be owner/name",
		},
		{
			name: "handle without at sign",
			config: Config{
				GitHub: GitHubConfig{
					Repository: "triagehq/widgets",
				},
				Bot: BotConfig{
					Handle: "label-bot",
				},
			},
			wantErr: true,
			errMsg:  "must start with @",
		},
		{
			name: "invalid call timeout",
			config: Config{
				GitHub: GitHubConfig{
					Repository: "triagehq/widgets",
				},
				Bot: BotConfig{
					Handle:      "@label-bot",
					CallTimeout: "invalid",
				},
			},
			wantErr: true,
			errMsg:  "invalid call_timeout",
		},
		{
			name: "negative rate limit floor",
			config: Config{
				GitHub: GitHubConfig{
					Repository: "triagehq/widgets",
				},
				Bot: BotConfig{
					Handle:         "@label-bot",
					RateLimitFloor: -1,
				},
			},
			wantErr: true,
			errMsg:  "rate_limit_floor",
		},
		{
			name: "app id without installation id",
			config: Config{
				GitHub: GitHubConfig{
					Repository: "triagehq/widgets",
					AppID:      123456,
				},
				Bot: BotConfig{
					Handle: "@label-bot",
				},
			},
			wantErr: true,
			errMsg:  "both be set",
		},
		{
			name: "app id with installation id",
			config: Config{
				GitHub: GitHubConfig{
					Repository:     "triagehq/widgets",
					AppID:          123456,
					InstallationID: 789012,
				},
				Bot: BotConfig{
					Handle: "@label-bot",
				},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.errMsg)
					return
				}
				if tt.errMsg != "" && !containsString(err.Error(), tt.errMsg) {
					t.Errorf("Validate() error = %q, want error containing %q", err.Error(), tt.errMsg)
				}
			} else {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			}
		})
	}
}

func TestConfig_ValidateForServe(t *testing.T) {
	valid := Config{
		GitHub: GitHubConfig{Repository: "triagehq/widgets"},
		Bot:    BotConfig{Handle: "@label-bot"},
		Cloud:  CloudConfig{Project: "triage-prod", SecretName: "labelbot-credentials"},
		Queue:  QueueConfig{Topic: "labelbot-events"},
	}

	if err := valid.ValidateForServe(); err != nil {
		t.Errorf("ValidateForServe() unexpected error: %v", err)
	}

	missing := valid
	missing.Cloud.Project = ""
	if err := missing.ValidateForServe(); err == nil {
		t.Error("ValidateForServe() expected error for missing project")
	}

	missing = valid
	missing.Queue.Topic = ""
	if err := missing.ValidateForServe(); err == nil {
		t.Error("ValidateForServe() expected error for missing topic")
	}
}

func TestConfig_ValidateForWorker(t *testing.T) {
	valid := Config{
		GitHub: GitHubConfig{Repository: "triagehq/widgets"},
		Bot:    BotConfig{Handle: "@label-bot"},
		Cloud:  CloudConfig{Project: "triage-prod", SecretName: "labelbot-credentials"},
		Queue:  QueueConfig{Subscription: "labelbot-worker"},
	}

	if err := valid.ValidateForWorker(); err != nil {
		t.Errorf("ValidateForWorker() unexpected error: %v", err)
	}

	missing := valid
	missing.Queue.Subscription = ""
	if err := missing.ValidateForWorker(); err == nil {
		t.Error("ValidateForWorker() expected error for missing subscription")
	}

	missing = valid
	missing.Cloud.SecretName = ""
	if err := missing.ValidateForWorker(); err == nil {
		t.Error("ValidateForWorker() expected error for missing secret name")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{
		GitHub: GitHubConfig{Repository: "triagehq/widgets"},
	}
	applyDefaults(&cfg)

	if cfg.GitHub.APIBaseURL != "https://api.github.com" {
		t.Errorf("APIBaseURL = %q, want api.github.com default", cfg.GitHub.APIBaseURL)
	}
	if cfg.Bot.Handle != "@label-bot" {
		t.Errorf("Handle = %q, want @label-bot", cfg.Bot.Handle)
	}
	if cfg.Bot.CallTimeout != "30s" {
		t.Errorf("CallTimeout = %q, want 30s", cfg.Bot.CallTimeout)
	}
	if cfg.Queue.Topic != "labelbot-events" {
		t.Errorf("Topic = %q, want labelbot-events", cfg.Queue.Topic)
	}
	if cfg.Queue.Subscription != "labelbot-worker" {
		t.Errorf("Subscription = %q, want labelbot-worker", cfg.Queue.Subscription)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.Server.ListenAddr)
	}
}

func TestApplyDefaults_DoesNotOverride(t *testing.T) {
	cfg := Config{
		GitHub: GitHubConfig{
			Repository: "triagehq/widgets",
			APIBaseURL: "https://ghe.example.com/api/v3",
		},
		Bot: BotConfig{
			Handle:      "@triage-bot",
			CallTimeout: "10s",
		},
		Server: ServerConfig{ListenAddr: ":9090"},
	}
	applyDefaults(&cfg)

	if cfg.GitHub.APIBaseURL != "https://ghe.example.com/api/v3" {
		t.Errorf("APIBaseURL overridden: %q", cfg.GitHub.APIBaseURL)
	}
	if cfg.Bot.Handle != "@triage-bot" {
		t.Errorf("Handle overridden: %q", cfg.Bot.Handle)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("ListenAddr overridden: %q", cfg.Server.ListenAddr)
	}
}

func TestConfig_CallTimeout(t *testing.T) {
	cfg := Config{Bot: BotConfig{CallTimeout: "45s"}}
	d, err := cfg.CallTimeout()
	if err != nil {
		t.Fatalf("CallTimeout() error: %v", err)
	}
	if d != 45*time.Second {
		t.Errorf("CallTimeout() = %v, want 45s", d)
	}

	cfg.Bot.CallTimeout = "bogus"
	if _, err := cfg.CallTimeout(); err == nil {
		t.Error("CallTimeout() expected error for bad duration")
	}
}

func containsString(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(substr) == 0 ||
		(len(s) > 0 && len(substr) > 0 && findSubstring(s, substr)))
}

func findSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
