package memory

import "billed/internal/core"

// Fixtures returns sample bills, deliberately out of date order.
func Fixtures() []core.Bill {
	return []core.Bill{
		{
			ID:         "47qAXb6fIm2zOKkLzMro",
			Email:      "a@a",
			Type:       "Hôtel et logement",
			Name:       "encore",
			Amount:     400,
			Date:       "2004-04-04",
			VAT:        "80",
			Pct:        20,
			Commentary: "séminaire billed",
			FileURL:    ProofBaseURL + "47qAXb6fIm2zOKkLzMro/preview-facture-free-201801-pdf-1.jpg",
			FileName:   "preview-facture-free-201801-pdf-1.jpg",
			Status:     core.StatusPending,
		},
		{
			ID:         "BeKy5Mo4jkmdfPGYpTxZ",
			Email:      "a@a",
			Type:       "Transports",
			Name:       "test1",
			Amount:     100,
			Date:       "2001-01-01",
			VAT:        "",
			Pct:        20,
			Commentary: "plop",
			FileURL:    ProofBaseURL + "BeKy5Mo4jkmdfPGYpTxZ/1592770761.jpeg",
			FileName:   "1592770761.jpeg",
			Status:     core.StatusRefused,
		},
		{
			ID:         "UIUZtnPQvnbFnB0ozvJh",
			Email:      "a@a",
			Type:       "Services en ligne",
			Name:       "test3",
			Amount:     300,
			Date:       "2003-03-03",
			VAT:        "60",
			Pct:        20,
			Commentary: "",
			FileURL:    ProofBaseURL + "UIUZtnPQvnbFnB0ozvJh/facture-client-php-exportee-dans-document-pdf-enregistre-sur-disque-dur.png",
			FileName:   "facture-client-php-exportee-dans-document-pdf-enregistre-sur-disque-dur.png",
			Status:     core.StatusAccepted,
		},
		{
			ID:         "qcCK3SzECmaZAGRrHjaC",
			Email:      "a@a",
			Type:       "Restaurants et bars",
			Name:       "test2",
			Amount:     200,
			Date:       "2002-02-02",
			VAT:        "40",
			Pct:        20,
			Commentary: "test2",
			FileURL:    ProofBaseURL + "qcCK3SzECmaZAGRrHjaC/preview-facture-free-201801-pdf-1.jpg",
			FileName:   "preview-facture-free-201801-pdf-1.jpg",
			Status:     core.StatusRefused,
		},
	}
}
