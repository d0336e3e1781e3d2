package email

import (
	"fmt"
	"html"
	"strconv"

	qrcode "github.com/skip2/go-qrcode"
)

const qrFileName = "booking-qr.png"

// BookingConfirmationData is what the confirmation email shows the booker.
type BookingConfirmationData struct {
	To            string
	FullName      string
	BookingID     string
	VenueName     string
	Date          string // YYYY-MM-DD
	Time          string // HH:MM
	DurationHours float64
	TotalPrice    int64 // minor units
	Currency      string
	AppName       string
}

// BookingQRPayload is the string encoded in the check-in QR code.
func BookingQRPayload(bookingID string) string {
	return "pitchside:booking:" + bookingID
}

// FormatAmount renders minor units as a decimal amount, e.g. 4500 USD -> 45.00 USD.
func FormatAmount(minor int64, currency string) string {
	if minor == 0 {
		return "Free"
	}
	return fmt.Sprintf("%d.%02d %s", minor/100, minor%100, currency)
}

// BuildBookingConfirmationEmail renders the plain confirmation plus an
// inline QR code the venue can scan at check-in.
func BuildBookingConfirmationEmail(data BookingConfirmationData) (Message, error) {
	appName := data.AppName
	if appName == "" {
		appName = "Pitchside"
	}
	name := data.FullName
	if name == "" {
		name = "there"
	}

	png, err := qrcode.Encode(BookingQRPayload(data.BookingID), qrcode.Medium, 256)
	if err != nil {
		return Message{}, fmt.Errorf("encode booking qr: %w", err)
	}

	duration := strconv.FormatFloat(data.DurationHours, 'f', -1, 64)
	amount := FormatAmount(data.TotalPrice, data.Currency)
	subject := fmt.Sprintf("Your booking at %s is confirmed", data.VenueName)

	textBody := fmt.Sprintf(`Hi %s,

Your booking is confirmed.

Venue:    %s
Date:     %s
Time:     %s
Duration: %s h
Total:    %s
Booking:  %s

Show the QR code in this email at the front desk.

The %s Team`,
		name, data.VenueName, data.Date, data.Time, duration, amount, data.BookingID, appName)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #16a34a;">Hi %s, your booking is confirmed</h2>
    <table style="border-collapse: collapse;">
        <tr><td style="padding: 4px 12px 4px 0;">Venue</td><td><strong>%s</strong></td></tr>
        <tr><td style="padding: 4px 12px 4px 0;">Date</td><td>%s</td></tr>
        <tr><td style="padding: 4px 12px 4px 0;">Time</td><td>%s</td></tr>
        <tr><td style="padding: 4px 12px 4px 0;">Duration</td><td>%s h</td></tr>
        <tr><td style="padding: 4px 12px 4px 0;">Total</td><td>%s</td></tr>
    </table>
    <p style="text-align: center; margin: 30px 0;"><img src="cid:%s" alt="Booking QR code" width="200" height="200"></p>
    <p style="color: #6b7280; font-size: 12px;">Booking %s</p>
    <p style="color: #6b7280; font-size: 14px;">The %s Team</p>
</body>
</html>`,
		html.EscapeString(name), html.EscapeString(data.VenueName), data.Date, data.Time,
		duration, amount, qrFileName, data.BookingID, appName)

	return Message{
		To:       []string{data.To},
		Subject:  subject,
		TextBody: textBody,
		HTMLBody: htmlBody,
		Inline:   []InlineFile{{Name: qrFileName, ContentType: "image/png", Data: png}},
	}, nil
}
