package mailer

import (
	"fmt"
	"time"

	"medwatch-server/internal/config"
	"medwatch-server/internal/domain"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

var severityColors = map[string]string{
	domain.SeverityCritical: "#dc3545",
	domain.SeverityWarning:  "#ffc107",
	domain.SeverityInfo:     "#17a2b8",
}

const defaultSeverityColor = "#6c757d"

// Mailer sends alarm notification emails over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

func New(cfg config.SMTPConfig, logger *zap.Logger) *Mailer {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   from,
		logger: logger,
	}
}

// SendAlarmEmail delivers the alarm to the doctor's inbox with an HTML body
// and a plain text alternative.
func (m *Mailer) SendAlarmEmail(doctor *domain.Doctor, patient *domain.Patient, alarm *domain.AlarmPayload) error {
	if doctor.Email == "" {
		return fmt.Errorf("doctor %s has no email address", doctor.ID)
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, "Health Monitor System")
	msg.SetHeader("To", doctor.Email)
	msg.SetHeader("Subject", fmt.Sprintf("🚨 %s ALARM - %s", alarm.Severity, patient.FullName))
	msg.SetBody("text/plain", plainBody(patient, alarm))
	msg.AddAlternative("text/html", htmlBody(patient, alarm))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send alarm email: %w", err)
	}

	m.logger.Info("alarm email sent",
		zap.String("to", doctor.Email),
		zap.String("device_id", alarm.DeviceID),
	)
	return nil
}

func vital(alarm *domain.AlarmPayload, key string) string {
	if alarm.Data == nil {
		return "N/A"
	}
	value, ok := alarm.Data[key]
	if !ok || value == nil {
		return "N/A"
	}
	if f, ok := value.(float64); ok {
		return fmt.Sprintf("%g", f)
	}
	return fmt.Sprintf("%v", value)
}

func room(patient *domain.Patient) string {
	if patient.Room == "" {
		return "N/A"
	}
	return patient.Room
}

func plainBody(patient *domain.Patient, alarm *domain.AlarmPayload) string {
	return fmt.Sprintf(`ALARM NOTIFICATION - %s

Alarm Type: %s

Patient: %s
CCCD: %s
Room: %s

Vital Signs:
- Heart Rate: %s bpm
- SpO2: %s%%
- Temperature: %s°C

Time: %s
Device ID: %s

Please check the patient immediately.
`,
		alarm.Severity,
		alarm.AlarmType,
		patient.FullName,
		patient.CCCD,
		room(patient),
		vital(alarm, "heart_rate"),
		vital(alarm, "SpO2"),
		vital(alarm, "temperature"),
		time.Now().Format(time.RFC3339),
		alarm.DeviceID,
	)
}

func htmlBody(patient *domain.Patient, alarm *domain.AlarmPayload) string {
	color, ok := severityColors[alarm.Severity]
	if !ok {
		color = defaultSeverityColor
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
  .container { max-width: 600px; margin: 0 auto; padding: 20px; }
  .header { background: %[1]s; color: white; padding: 20px; border-radius: 5px 5px 0 0; }
  .content { background: #f9f9f9; padding: 20px; border: 1px solid #ddd; }
  .metric { background: white; padding: 15px; margin: 10px 0; border-radius: 5px; border-left: 4px solid %[1]s; }
  .metric-label { font-weight: bold; color: #555; }
  .metric-value { font-size: 24px; color: %[1]s; }
  .footer { text-align: center; padding: 20px; color: #777; font-size: 12px; }
</style>
</head>
<body>
<div class="container">
  <div class="header"><h2>🚨 %s ALARM: %s</h2></div>
  <div class="content">
    <h3>Patient Information</h3>
    <p><strong>Name:</strong> %s</p>
    <p><strong>CCCD:</strong> %s</p>
    <p><strong>Room:</strong> %s</p>
    <h3>Vital Signs</h3>
    <div class="metric"><div class="metric-label">Heart Rate</div><div class="metric-value">%s bpm</div></div>
    <div class="metric"><div class="metric-label">SpO2</div><div class="metric-value">%s%%</div></div>
    <div class="metric"><div class="metric-label">Temperature</div><div class="metric-value">%s&deg;C</div></div>
    <p style="margin-top: 20px;"><strong>Time:</strong> %s</p>
    <p><strong>Device ID:</strong> %s</p>
  </div>
  <div class="footer">
    <p>Health Monitoring System - IoT Platform</p>
    <p>This is an automated notification. Please check the patient immediately.</p>
  </div>
</div>
</body>
</html>`,
		color,
		alarm.Severity,
		alarm.AlarmType,
		patient.FullName,
		patient.CCCD,
		room(patient),
		vital(alarm, "heart_rate"),
		vital(alarm, "SpO2"),
		vital(alarm, "temperature"),
		time.Now().Format(time.RFC3339),
		alarm.DeviceID,
	)
}
