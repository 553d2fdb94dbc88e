package camara

import (
	"strings"
	"time"

	"github.com/cidadao-ativo/cidadao-api/internal/bill"
)

// Wire types mirror the Dados Abertos payloads. Absent or null fields decode
// to zero values.

type proposicoesEnvelope struct {
	Dados []proposicaoWire `json:"dados"`
}

type proposicaoEnvelope struct {
	Dados proposicaoWire `json:"dados"`
}

type proposicaoWire struct {
	ID               int64  `json:"id"`
	SiglaTipo        string `json:"siglaTipo"`
	Numero           int    `json:"numero"`
	Ano              int    `json:"ano"`
	Ementa           string `json:"ementa"`
	Keywords         string `json:"keywords"`
	URLInteiroTeor   string `json:"urlInteiroTeor"`
	StatusProposicao *struct {
		DescricaoSituacao string `json:"descricaoSituacao"`
	} `json:"statusProposicao"`
}

type votacoesEnvelope struct {
	Dados []votacaoWire `json:"dados"`
}

type votacaoWire struct {
	ID               string `json:"id"`
	Data             string `json:"data"`
	DataHoraRegistro string `json:"dataHoraRegistro"`
}

type votosEnvelope struct {
	Dados []votoWire `json:"dados"`
}

type votoWire struct {
	TipoVoto string `json:"tipoVoto"`
	Deputado struct {
		ID           int64  `json:"id"`
		Nome         string `json:"nome"`
		SiglaPartido string `json:"siglaPartido"`
		SiglaUf      string `json:"siglaUf"`
		URLFoto      string `json:"urlFoto"`
	} `json:"deputado_"`
}

type tramitacoesEnvelope struct {
	Dados []tramitacaoWire `json:"dados"`
}

type tramitacaoWire struct {
	DataHora            string `json:"dataHora"`
	Sequencia           int    `json:"sequencia"`
	SiglaOrgao          string `json:"siglaOrgao"`
	DescricaoTramitacao string `json:"descricaoTramitacao"`
	Despacho            string `json:"despacho"`
}

func (p proposicaoWire) record() bill.Record {
	rec := bill.Record{
		ID:             p.ID,
		SiglaTipo:      strings.TrimSpace(p.SiglaTipo),
		Numero:         p.Numero,
		Ano:            p.Ano,
		Ementa:         p.Ementa,
		Keywords:       p.Keywords,
		URLInteiroTeor: p.URLInteiroTeor,
	}
	if p.StatusProposicao != nil {
		rec.DescricaoSituacao = p.StatusProposicao.DescricaoSituacao
	}
	return rec
}

func (v votacaoWire) rollCall() bill.RollCall {
	at := parseTime(v.DataHoraRegistro)
	if at.IsZero() {
		at = parseTime(v.Data)
	}
	return bill.RollCall{ID: v.ID, RegisteredAt: at}
}

func (v votoWire) entry() bill.VoterEntry {
	return bill.VoterEntry{
		VoteValue: v.TipoVoto,
		Voter: bill.Voter{
			ID:       v.Deputado.ID,
			Name:     v.Deputado.Nome,
			Party:    v.Deputado.SiglaPartido,
			State:    v.Deputado.SiglaUf,
			PhotoURL: v.Deputado.URLFoto,
		},
	}
}

func (t tramitacaoWire) tramitacao() bill.Tramitacao {
	return bill.Tramitacao{
		DataHora:            parseTime(t.DataHora),
		Sequencia:           t.Sequencia,
		SiglaOrgao:          t.SiglaOrgao,
		DescricaoTramitacao: t.DescricaoTramitacao,
		Despacho:            t.Despacho,
	}
}

// brasilia is UTC-3; Brazil has not observed daylight saving since 2019.
var brasilia = time.FixedZone("BRT", -3*60*60)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTime accepts the timestamp shapes the API emits. Offset-less values are
// Brasília local time. Unparsable input yields the zero time.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, brasilia); err == nil {
			return t
		}
	}
	return time.Time{}
}
