package services

import (
	"bytes"
	"errors"
	"image/png"
	"strings"

	"github.com/onegreenvn/stockplus-backend/internal/apperror"
	"github.com/onegreenvn/stockplus-backend/internal/policy"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"gorm.io/gorm"
)

const (
	labelWidth  = 300
	labelHeight = 100
)

// RenderCode128 draws code as a Code 128 barcode scaled to width x height and encodes it as PNG
func RenderCode128(code string, width, height int) ([]byte, error) {
	bc, err := code128.Encode(code)
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(bc, width, height)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnitLabel renders the printable barcode of a unit, sold or not
func (s *StockService) UnitLabel(actor policy.Actor, code string) ([]byte, error) {
	if err := policy.Authorize(actor, policy.OpViewStock); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	unit, err := s.stockRepo.GetUnitByCode(code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errUnitNotFound(code)
	}
	if err != nil {
		return nil, apperror.Storage("load unit", err)
	}
	img, err := RenderCode128(unit.Code, labelWidth, labelHeight)
	if err != nil {
		return nil, apperror.Storage("render barcode", err)
	}
	return img, nil
}
