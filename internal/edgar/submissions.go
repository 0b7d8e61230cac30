package edgar

// Submissions is the filing history document of data.sec.gov
type Submissions struct {
	CIK     string   `json:"cik"`
	Name    string   `json:"name"`
	Tickers []string `json:"tickers"`
	Filings struct {
		Recent RecentFilings `json:"recent"`
	} `json:"filings"`
}

// RecentFilings holds parallel arrays, newest filing first
type RecentFilings struct {
	AccessionNumber []string `json:"accessionNumber"`
	FilingDate      []string `json:"filingDate"`
	ReportDate      []string `json:"reportDate"`
	Form            []string `json:"form"`
	PrimaryDocument []string `json:"primaryDocument"`
}

// Filing is one row of RecentFilings
type Filing struct {
	AccessionNumber string
	FilingDate      string
	ReportDate      string
	Form            string
	PrimaryDocument string
}

// Latest returns the newest filing of exactly the given form. Amendments
// such as 10-K/A do not match 10-K.
func (s *Submissions) Latest(form string) (Filing, bool) {
	r := s.Filings.Recent
	for i, f := range r.Form {
		if f != form {
			continue
		}
		if i >= len(r.AccessionNumber) || i >= len(r.PrimaryDocument) {
			return Filing{}, false
		}
		return Filing{
			AccessionNumber: r.AccessionNumber[i],
			FilingDate:      at(r.FilingDate, i),
			ReportDate:      at(r.ReportDate, i),
			Form:            f,
			PrimaryDocument: r.PrimaryDocument[i],
		}, true
	}
	return Filing{}, false
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}
