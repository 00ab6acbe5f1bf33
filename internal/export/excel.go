// Package export renders the appointment book as an Excel workbook.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"clinicbook/internal/models"
)

var columns = []string{
	"ID", "Doctor", "Specialization", "Patient", "Phone",
	"Disease", "Date", "Time", "Status", "Upcoming/Past",
}

// Lister is the read slice of the appointment store the exporter needs.
type Lister interface {
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error)
}

// Exporter writes appointment listings into .xlsx workbooks.
type Exporter struct {
	store Lister
}

func New(store Lister) *Exporter {
	return &Exporter{store: store}
}

// Filename suggests a download name for an export taken at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("appointments-%s.xlsx", t.Format("2006-01"))
}

// WriteAppointments renders the filtered appointment book to w.
func (e *Exporter) WriteAppointments(ctx context.Context, w io.Writer, filter models.AppointmentFilter) error {
	appointments, err := e.store.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("list appointments: %w", err)
	}

	file := excelize.NewFile()
	defer file.Close()

	const sheet = "Appointments"
	file.SetSheetName("Sheet1", sheet)

	if err := writeHeader(file, sheet); err != nil {
		return err
	}
	for i, appt := range appointments {
		if err := writeRow(file, sheet, i+2, appt); err != nil {
			return err
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeHeader(file *excelize.File, sheet string) error {
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}

	style, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		endCell, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = file.SetCellStyle(sheet, "A1", endCell, style)
	}
	return nil
}

func writeRow(file *excelize.File, sheet string, row int, appt models.Appointment) error {
	values := []interface{}{
		appt.ID, appt.DoctorName, appt.DoctorSpecialization, appt.PatientName,
		appt.PhoneNumber, appt.Disease, appt.Date, appt.TimeSlot,
		appt.Status, appt.TemporalStatus,
	}
	for i, val := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, val); err != nil {
			return err
		}
	}
	return nil
}
