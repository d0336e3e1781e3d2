package sms

import (
	"context"
	"errors"
	"testing"

	"github.com/pitchside/pitchside_backend/config"
)

func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.SMSConfig
		wantEnabled bool
		wantErr     bool
	}{
		{
			name: "disabled",
			cfg:  config.SMSConfig{Enabled: false},
		},
		{
			name:    "enabled without api key",
			cfg:     config.SMSConfig{Enabled: true, SMSIR: config.SMSIRConfig{TemplateID: "t"}},
			wantErr: true,
		},
		{
			name:    "enabled without template",
			cfg:     config.SMSConfig{Enabled: true, SMSIR: config.SMSIRConfig{APIKey: "k"}},
			wantErr: true,
		},
		{
			name:        "enabled",
			cfg:         config.SMSConfig{Enabled: true, SMSIR: config.SMSIRConfig{APIKey: "k", SecretKey: "s", TemplateID: "t"}},
			wantEnabled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewFromConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && client.IsEnabled() != tt.wantEnabled {
				t.Errorf("IsEnabled() = %v, want %v", client.IsEnabled(), tt.wantEnabled)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	client := &Client{region: "US"}

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"(650) 253-0000", "+16502530000", false},
		{"+44 20 7031 3000", "+442070313000", false},
		{"  +1 650 253 0000 ", "+16502530000", false},
		{"12", "", true},
		{"not a number", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := client.Normalize(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Normalize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidPhone) {
				t.Errorf("Normalize(%q) error = %v, want ErrInvalidPhone", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSendBookingConfirmation_Disabled(t *testing.T) {
	client := &Client{enabled: false}
	if err := client.SendBookingConfirmation(context.Background(), BookingConfirmation{}); err != nil {
		t.Errorf("SendBookingConfirmation() on disabled client = %v, want nil", err)
	}
}

func TestSendBookingConfirmation_InvalidPhone(t *testing.T) {
	client := &Client{enabled: true, region: "US"}
	err := client.SendBookingConfirmation(context.Background(), BookingConfirmation{Phone: "abc"})
	if !errors.Is(err, ErrInvalidPhone) {
		t.Errorf("SendBookingConfirmation() error = %v, want ErrInvalidPhone", err)
	}
}
