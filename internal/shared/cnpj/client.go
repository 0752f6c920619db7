// Package cnpj 巴西企业税号(CNPJ)公开查询客户端
package cnpj

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://publica.cnpj.ws"
	digitsLen      = 14
)

var (
	ErrInvalidCNPJ    = errors.New("cnpj must have 14 digits")
	ErrLookupFailed   = errors.New("cnpj lookup failed")
	ErrMalformedReply = errors.New("malformed cnpj payload")
)

// Client CNPJ 查询客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建客户端，baseURL 为空时使用公开接口
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Address 地址
type Address struct {
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
	ZipCode    string `json:"zip_code"`
}

// Company 查询结果
type Company struct {
	CNPJ      string  `json:"cnpj"`
	Name      string  `json:"name"`       // 法定名称
	TradeName string  `json:"trade_name"` // 商号
	Address   Address `json:"address"`
	Phone     string  `json:"phone"`
	Email     string  `json:"email"`
}

type payload struct {
	RazaoSocial     string         `json:"razao_social"`
	Estabelecimento *establishment `json:"estabelecimento"`
}

type establishment struct {
	NomeFantasia   string `json:"nome_fantasia"`
	TipoLogradouro string `json:"tipo_logradouro"`
	Logradouro     string `json:"logradouro"`
	Numero         string `json:"numero"`
	Complemento    string `json:"complemento"`
	Bairro         string `json:"bairro"`
	CEP            string `json:"cep"`
	DDD1           string `json:"ddd1"`
	Telefone1      string `json:"telefone1"`
	Email          string `json:"email"`
	Cidade         struct {
		Nome string `json:"nome"`
	} `json:"cidade"`
	Estado struct {
		Sigla string `json:"sigla"`
	} `json:"estado"`
}

// Normalize 去除非数字字符并校验长度
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) != digitsLen {
		return "", ErrInvalidCNPJ
	}
	return digits, nil
}

// Lookup 查询企业信息
func (c *Client) Lookup(ctx context.Context, raw string) (*Company, error) {
	digits, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cnpj/"+digits, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrLookupFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if p.RazaoSocial == "" || p.Estabelecimento == nil {
		return nil, ErrMalformedReply
	}

	e := p.Estabelecimento
	return &Company{
		CNPJ:      digits,
		Name:      p.RazaoSocial,
		TradeName: e.NomeFantasia,
		Address: Address{
			Street:     strings.TrimSpace(e.TipoLogradouro + " " + e.Logradouro),
			Number:     e.Numero,
			Complement: e.Complemento,
			District:   e.Bairro,
			City:       e.Cidade.Nome,
			State:      e.Estado.Sigla,
			ZipCode:    e.CEP,
		},
		Phone: e.DDD1 + e.Telefone1,
		Email: e.Email,
	}, nil
}
