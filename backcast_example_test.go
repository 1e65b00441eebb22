package backcast

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aouyang1/go-backcast/provider"
)

func ExampleEngine_Backtest() {
	data := `ano;producao_total
2015;100
2016;110
2017;105
2018;120
2019;130
2020;125
2021;140
2022;150
2023;145
2024;160
`
	p, err := provider.NewCSV(strings.NewReader(data), nil)
	if err != nil {
		panic(err)
	}
	s, err := p.Series(context.Background(), "producao_total")
	if err != nil {
		panic(err)
	}

	e, err := New(nil)
	if err != nil {
		panic(err)
	}
	r, err := e.Backtest(context.Background(), s, Range{Start: 2021, End: 2024})
	if err != nil {
		fmt.Println(Remediation(err))
		return
	}
	if err := r.TablePrint(os.Stderr, "", "  "); err != nil {
		panic(err)
	}
	fmt.Println(len(r.Rows), r.Rows[0].Year, r.Rows[len(r.Rows)-1].Year)
	// Output: 4 2021 2024
}
