package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"recibos/internal/core"
	"recibos/internal/log"
)

type (
	scheduleDoc struct {
		NIF             string      `json:"nif"`
		Classes         []classDoc  `json:"classes"`
		VacationPeriods []periodDoc `json:"vacationPeriods"`
	}

	classDoc struct {
		Day         string     `json:"day"`
		Time        string     `json:"time"`
		Value       amountDoc  `json:"value"`
		ClassType   string     `json:"classType"`
		ValuePeriod *periodDoc `json:"valuePeriod"`
	}

	periodDoc struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	}

	settingsDoc struct {
		IVAThreshold           *amountDoc `json:"ivaThreshold"`
		RetencaoFonteThreshold *amountDoc `json:"retencaoFonteThreshold"`
		IRSThreshold           *amountDoc `json:"irsThreshold"`
	}
)

// amountDoc accepts a JSON number or a numeric string.
type amountDoc struct {
	raw string
	set bool
}

func (a *amountDoc) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		a.raw, a.set = s, strings.TrimSpace(s) != ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	a.raw, a.set = n.String(), true
	return nil
}

func (a amountDoc) money() (core.Money, error) {
	if !a.set {
		return core.Zero, core.ErrInvalidAmount
	}
	return core.ParseMoney(a.raw)
}

// DecodeEntities reads nifs.json, a map of NIF to entity name.
func DecodeEntities(r io.Reader) (core.EntityMap, error) {
	var raw map[string]string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, decodeErr(EntitiesDocument, -1, "", fmt.Errorf("%w: %v", ErrMalformedDocument, err))
	}
	out := make(core.EntityMap, len(raw))
	for nif, name := range raw {
		out[strings.TrimSpace(nif)] = strings.TrimSpace(name)
	}
	return out, nil
}

// DecodeSchedule reads classValues.json.
func DecodeSchedule(r io.Reader, opts DecodeOptions) ([]core.ScheduleEntry, error) {
	var docs []scheduleDoc
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, decodeErr(ScheduleDocument, -1, "", fmt.Errorf("%w: %v", ErrMalformedDocument, err))
	}

	logger := opts.logger()
	entries := make([]core.ScheduleEntry, 0, len(docs))
	for i, d := range docs {
		entry := core.ScheduleEntry{
			OwnerID:         strings.TrimSpace(d.NIF),
			Classes:         make([]core.ClassDef, 0, len(d.Classes)),
			VacationPeriods: make([]core.DateInterval, 0, len(d.VacationPeriods)),
		}
		if entry.OwnerID == "" {
			return nil, decodeErr(ScheduleDocument, i, "nif", fmt.Errorf("%w: %w", ErrMalformedDocument, core.ErrEmptyOwner))
		}

		for j, c := range d.Classes {
			field := fmt.Sprintf("classes[%d]", j)
			day, err := core.ParseWeekday(c.Day)
			if err != nil {
				if opts.Strict {
					return nil, decodeErr(ScheduleDocument, i, field+".day", fmt.Errorf("%w: %w", ErrMalformedDocument, err))
				}
				logger.Warn("Class with unknown weekday skipped",
					log.FieldDocument, ScheduleDocument, "index", i, "field", field+".day", "value", c.Day)
				continue
			}
			value, err := c.Value.money()
			if err != nil {
				return nil, decodeErr(ScheduleDocument, i, field+".value", fmt.Errorf("%w: %w", ErrMalformedDocument, err))
			}
			class := core.ClassDef{
				Weekday:   day,
				Time:      strings.TrimSpace(c.Time),
				Value:     value,
				ClassType: strings.TrimSpace(c.ClassType),
			}
			if c.ValuePeriod != nil {
				iv, err := decodePeriod(logger, opts, i, field+".valuePeriod", *c.ValuePeriod, core.ParseDayMonthYear)
				if err != nil {
					return nil, err
				}
				class.ValidityPeriod = &iv
			}
			entry.Classes = append(entry.Classes, class)
		}

		for j, v := range d.VacationPeriods {
			iv, err := decodePeriod(logger, opts, i, fmt.Sprintf("vacationPeriods[%d]", j), v, core.ParseISODate)
			if err != nil {
				return nil, err
			}
			entry.VacationPeriods = append(entry.VacationPeriods, iv)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func decodePeriod(logger *log.Logger, opts DecodeOptions, index int, field string, p periodDoc, parse func(string) (core.Date, error)) (core.DateInterval, error) {
	var iv core.DateInterval
	bounds := []struct {
		name string
		raw  string
		dst  **core.Date
	}{
		{"startDate", p.StartDate, &iv.Start},
		{"endDate", p.EndDate, &iv.End},
	}
	for _, b := range bounds {
		if strings.TrimSpace(b.raw) == "" {
			continue
		}
		d, err := parse(b.raw)
		if err != nil {
			if opts.Strict {
				return iv, decodeErr(ScheduleDocument, index, field+"."+b.name, fmt.Errorf("%w: %w", ErrMalformedDate, err))
			}
			logger.Warn("Malformed date left open",
				log.FieldDocument, ScheduleDocument, "index", index, "field", field+"."+b.name, "value", b.raw)
			continue
		}
		*b.dst = core.DateRef(d)
	}
	if iv.Inverted() {
		logger.Warn("Inverted interval contains no day",
			log.FieldDocument, ScheduleDocument, "index", index, "field", field, "interval", iv.String())
	}
	return iv, nil
}

// DecodeHolidays reads holidays.json, a map of year to ISO dates.
func DecodeHolidays(r io.Reader, opts DecodeOptions) (core.HolidaySet, error) {
	var raw map[string][]string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return core.HolidaySet{}, decodeErr(HolidaysDocument, -1, "", fmt.Errorf("%w: %v", ErrMalformedDocument, err))
	}
	set := core.NewHolidaySet()
	for year, dates := range raw {
		if _, err := strconv.Atoi(strings.TrimSpace(year)); err != nil {
			return core.HolidaySet{}, decodeErr(HolidaysDocument, -1, year, fmt.Errorf("%w: %w", ErrMalformedDocument, core.ErrInvalidYear))
		}
		for i, s := range dates {
			d, err := core.ParseISODate(s)
			if err != nil {
				if opts.Strict {
					return core.HolidaySet{}, decodeErr(HolidaysDocument, i, year, fmt.Errorf("%w: %w", ErrMalformedDate, err))
				}
				opts.logger().Warn("Malformed holiday ignored", log.FieldDocument, HolidaysDocument, log.FieldYear, year, "value", s)
				continue
			}
			set.Add(d)
		}
	}
	return set, nil
}

// DecodeSettings reads config.json. Missing thresholds stay nil.
func DecodeSettings(r io.Reader) (core.Settings, error) {
	var doc settingsDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return core.Settings{}, decodeErr(SettingsDocument, -1, "", fmt.Errorf("%w: %v", ErrMalformedDocument, err))
	}
	var out core.Settings
	fields := []struct {
		name string
		src  *amountDoc
		dst  **core.Money
	}{
		{"ivaThreshold", doc.IVAThreshold, &out.IVAThreshold},
		{"retencaoFonteThreshold", doc.RetencaoFonteThreshold, &out.RetencaoFonteThreshold},
		{"irsThreshold", doc.IRSThreshold, &out.IRSThreshold},
	}
	for _, f := range fields {
		if f.src == nil || !f.src.set {
			continue
		}
		m, err := f.src.money()
		if err != nil {
			return core.Settings{}, decodeErr(SettingsDocument, -1, f.name, fmt.Errorf("%w: %w", ErrMalformedDocument, err))
		}
		*f.dst = &m
	}
	return out, nil
}

// MergeSettings fills thresholds missing from s with those of fallback.
func MergeSettings(s, fallback core.Settings) core.Settings {
	if s.IVAThreshold == nil {
		s.IVAThreshold = fallback.IVAThreshold
	}
	if s.RetencaoFonteThreshold == nil {
		s.RetencaoFonteThreshold = fallback.RetencaoFonteThreshold
	}
	if s.IRSThreshold == nil {
		s.IRSThreshold = fallback.IRSThreshold
	}
	return s
}
