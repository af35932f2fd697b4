package email

const (
	SubjectSLAWarningFmt = "SLA uyarısı: %s"
	CTAOpenRecord        = "Kaydı aç"
)
