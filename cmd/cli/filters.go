package main

import (
	"github.com/yurifrl/gastos/pkg/csv"
)

type filters struct {
	startDate string
	endDate   string
	minAmount string
	maxAmount string
	concept   string
	category  string
}

func (f *filters) toFilterFunc() (csv.FilterFunc, error) {
	flt, err := csv.ParseFilter(f.startDate, f.endDate, f.minAmount, f.maxAmount, f.concept, f.category)
	if err != nil {
		return nil, err
	}
	return flt.Func(), nil
}
