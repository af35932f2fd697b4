// Package pdf renders meeting reports as printable documents using maroto/v2.
package pdf

import (
	"fmt"
	"strconv"
	"strings"

	apptdomain "franchise_crm/internal/appointments/domain"
	"franchise_crm/internal/reports/domain"
	"franchise_crm/internal/reports/transport"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var (
	colorPrimary    = &props.Color{Red: 17, Green: 24, Blue: 39}
	colorSecondary  = &props.Color{Red: 107, Green: 114, Blue: 128}
	colorAccent     = &props.Color{Red: 37, Green: 99, Blue: 235}
	colorTableHead  = &props.Color{Red: 241, Green: 245, Blue: 249}
	colorGreenLight = &props.Color{Red: 220, Green: 252, Blue: 231}
	colorGreen      = &props.Color{Red: 22, Green: 163, Blue: 74}
	colorRedLight   = &props.Color{Red: 254, Green: 226, Blue: 226}
	colorRed        = &props.Color{Red: 220, Green: 38, Blue: 38}
	colorBorder     = &props.Color{Red: 226, Green: 232, Blue: 240}
)

const dateTimeLayout = "02.01.2006 15:04"

// GenerateReportPDF renders one meeting report. Internal notes are printed
// only when the response carries them.
func GenerateReportPDF(r transport.ReportResponse) ([]byte, error) {
	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithTopMargin(12).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)

	if err := m.RegisterFooter(buildFooter(r)); err != nil {
		return nil, fmt.Errorf("register footer: %w", err)
	}

	m.AddRows(buildHeader(r)...)
	m.AddRows(separator())
	m.AddRows(row.New(6))

	m.AddRows(buildMeta(r)...)
	m.AddRows(row.New(4))
	m.AddRows(buildScoreBanner(r))
	m.AddRows(row.New(6))

	m.AddRows(buildSection("GÖRÜŞME", [][2]string{
		{"Görüşme türü", orDash(r.MeetingType)},
		{"Karar durumu", decisionLabel(r.DecisionStatus)},
		{"Sunum yapıldı", yesNo(r.PresentationGiven)},
		{"Yerinde inceleme", yesNo(r.SiteVisitDone)},
		{"Bina durumu", conditionLabel(r.BuildingCondition)},
	})...)

	if len(r.Participants) > 0 {
		m.AddRows(row.New(4))
		m.AddRows(buildParticipants(r.Participants)...)
	}

	if rows := buildingRows(r.BuildingData); len(rows) > 0 {
		m.AddRows(row.New(4))
		m.AddRows(buildSection("BİNA BİLGİLERİ", rows)...)
	}

	m.AddRows(row.New(4))
	m.AddRows(buildTextBlock("ÖZET", r.Summary)...)
	if r.NextSteps != "" {
		m.AddRows(row.New(4))
		m.AddRows(buildTextBlock("SONRAKİ ADIMLAR", r.NextSteps)...)
	}
	if r.InternalNotes != nil && *r.InternalNotes != "" {
		m.AddRows(row.New(4))
		m.AddRows(buildTextBlock("İÇ NOTLAR", *r.InternalNotes)...)
	}

	m.AddRows(row.New(6))
	m.AddRows(buildSection("EKLER", [][2]string{
		{"Fotoğraf", strconv.Itoa(len(r.Photos))},
		{"Video", strconv.Itoa(len(r.Videos))},
		{"Belge", strconv.Itoa(len(r.Documents))},
	})...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func buildHeader(r transport.ReportResponse) []core.Row {
	return []core.Row{
		row.New(20).Add(
			col.New(6).Add(text.New("Franchise CRM", props.Text{
				Size:  14,
				Style: fontstyle.Bold,
				Color: colorPrimary,
				Top:   4,
			})),
			col.New(6).Add(
				text.New("GÖRÜŞME RAPORU", props.Text{
					Size:  20,
					Style: fontstyle.Bold,
					Align: align.Right,
					Color: colorAccent,
				}),
				text.New(shortID(r.ID.String()), props.Text{
					Size:  10,
					Align: align.Right,
					Color: colorSecondary,
					Top:   11,
				}),
			),
		),
	}
}

func buildMeta(r transport.ReportResponse) []core.Row {
	label := props.Text{Size: 7, Style: fontstyle.Bold, Color: colorAccent}
	value := props.Text{Size: 9, Color: colorPrimary}
	return []core.Row{
		row.New(5).Add(
			col.New(4).Add(text.New("TALEP", label)),
			col.New(4).Add(text.New("RANDEVU", label)),
			col.New(4).Add(text.New("TESLİM", label)),
		),
		row.New(5).Add(
			col.New(4).Add(text.New(shortID(r.LeadID.String()), value)),
			col.New(4).Add(text.New(shortID(r.AppointmentID.String()), value)),
			col.New(4).Add(text.New(r.SubmittedAt.In(apptdomain.Local).Format(dateTimeLayout), value)),
		),
		row.New(5).Add(
			col.New(8),
			col.New(4).Add(text.New("Son tarih: "+r.ReportDeadline.In(apptdomain.Local).Format(dateTimeLayout),
				props.Text{Size: 8, Color: colorSecondary})),
		),
	}
}

func buildScoreBanner(r transport.ReportResponse) core.Row {
	label := fmt.Sprintf("Doluluk puanı: %d / 100", r.CompletenessScore)
	fg, bg := colorGreen, colorGreenLight
	if r.IsLate {
		label += "  ·  Geç teslim"
		fg, bg = colorRed, colorRedLight
	}
	return row.New(8).Add(
		col.New(12).Add(text.New(label, props.Text{
			Size:  9,
			Style: fontstyle.Bold,
			Color: fg,
			Top:   2,
			Left:  2,
		})),
	).WithStyle(&props.Cell{BackgroundColor: bg})
}

func buildSection(title string, pairs [][2]string) []core.Row {
	rows := []core.Row{sectionTitle(title)}
	for _, p := range pairs {
		rows = append(rows, row.New(5).Add(
			col.New(4).Add(text.New(p[0], props.Text{Size: 8, Color: colorSecondary})),
			col.New(8).Add(text.New(p[1], props.Text{Size: 8, Color: colorPrimary})),
		))
	}
	return rows
}

func buildParticipants(participants []transport.ParticipantDTO) []core.Row {
	head := props.Text{Size: 8, Style: fontstyle.Bold, Color: colorPrimary, Top: 1}
	rows := []core.Row{
		sectionTitle("KATILIMCILAR"),
		row.New(6).Add(
			col.New(5).Add(text.New("Ad", head)),
			col.New(4).Add(text.New("Rol", head)),
			col.New(3).Add(text.New("Telefon", head)),
		).WithStyle(&props.Cell{BackgroundColor: colorTableHead}),
	}
	cell := props.Text{Size: 8, Color: colorPrimary, Top: 1}
	for _, p := range participants {
		rows = append(rows, row.New(6).Add(
			col.New(5).Add(text.New(p.Name, cell)),
			col.New(4).Add(text.New(orDash(p.Role), cell)),
			col.New(3).Add(text.New(orDash(p.Phone), cell)),
		).WithStyle(&props.Cell{BorderType: border.Bottom, BorderColor: colorBorder}))
	}
	return rows
}

func buildTextBlock(title, body string) []core.Row {
	return []core.Row{
		sectionTitle(title),
		row.New(12).Add(
			col.New(12).Add(text.New(body, props.Text{
				Size:  8,
				Color: colorPrimary,
				Top:   1,
			})),
		),
	}
}

func buildFooter(r transport.ReportResponse) core.Row {
	footer := joinParts([]string{
		"Rapor " + r.ID.String(),
		"Ofis " + r.OfficeID.String(),
	}, "  ·  ")
	return row.New(10).Add(
		col.New(12).Add(text.New(footer, props.Text{
			Size:  6.5,
			Color: colorSecondary,
			Align: align.Center,
			Top:   4,
		})),
	).WithStyle(&props.Cell{
		BorderType:  border.Top,
		BorderColor: colorBorder,
	})
}

func sectionTitle(title string) core.Row {
	return row.New(6).Add(
		col.New(12).Add(text.New(title, props.Text{
			Size:  8,
			Style: fontstyle.Bold,
			Color: colorAccent,
		})),
	)
}

func separator() core.Row {
	return row.New(1).WithStyle(&props.Cell{
		BorderType:  border.Bottom,
		BorderColor: colorBorder,
	})
}

func buildingRows(b transport.BuildingDataResponse) [][2]string {
	var rows [][2]string
	addInt := func(label string, v *int) {
		if v != nil {
			rows = append(rows, [2]string{label, strconv.Itoa(*v)})
		}
	}
	addInt("Kat sayısı", b.FloorCount)
	addInt("Bağımsız bölüm", b.UnitCount)
	addInt("Bina yaşı", b.BuildingAge)
	if b.PlotArea != nil {
		rows = append(rows, [2]string{"Arsa alanı", strconv.FormatFloat(*b.PlotArea, 'f', 2, 64) + " m²"})
	}
	if b.HasBasement != nil {
		rows = append(rows, [2]string{"Bodrum", yesNo(*b.HasBasement)})
	}
	if b.RiskReportExists != nil {
		rows = append(rows, [2]string{"Riskli yapı raporu", yesNo(*b.RiskReportExists)})
	}
	if b.Notes != "" {
		rows = append(rows, [2]string{"Not", b.Notes})
	}
	return rows
}

func decisionLabel(status string) string {
	switch status {
	case domain.DecisionPositive:
		return "Olumlu"
	case domain.DecisionThinking:
		return "Düşünüyor"
	case domain.DecisionNegative:
		return "Olumsuz"
	case domain.DecisionFollowUp:
		return "Takip edilecek"
	default:
		return orDash(status)
	}
}

func conditionLabel(condition string) string {
	switch condition {
	case domain.ConditionGood:
		return "İyi"
	case domain.ConditionFair:
		return "Orta"
	case domain.ConditionPoor:
		return "Kötü"
	case domain.ConditionCritical:
		return "Kritik"
	default:
		return orDash(condition)
	}
}

func yesNo(v bool) string {
	if v {
		return "Evet"
	}
	return "Hayır"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func shortID(id string) string {
	if len(id) < 8 {
		return id
	}
	return "#" + strings.ToUpper(id[:8])
}

func joinParts(parts []string, sep string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
