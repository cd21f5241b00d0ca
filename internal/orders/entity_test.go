package orders

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backoffice-console/backoffice/internal/records"
)

func TestOrderDecodesMixedProductRefs(t *testing.T) {
	raw := `{"_id":"o1","total":42.5,"orderDate":"2024-03-09T10:11:12.000Z","products":["p1",{"_id":"p2","name":"Lamp","price":20,"category":{"_id":"c1","name":"Home"}}]}`
	var order Order
	require.NoError(t, json.Unmarshal([]byte(raw), &order))

	require.Len(t, order.Products, 2)
	assert.Equal(t, "p1", order.Products[0].ID)
	assert.Nil(t, order.Products[0].Embedded)
	require.NotNil(t, order.Products[1].Embedded)
	assert.Equal(t, "Lamp", order.Products[1].Label())
	assert.Equal(t, []string{"p1", "p2"}, ProductIDs(order.Products))
}

func TestDraftFromNormalisesRefsAndDate(t *testing.T) {
	raw := `{"_id":"o1","total":10,"orderDate":"2024-03-09T10:11:12.000Z","products":["p1",{"_id":"p2"}]}`
	var order Order
	require.NoError(t, json.Unmarshal([]byte(raw), &order))

	m := NewManager(nil)
	require.NoError(t, m.StartEdit(order))
	draft, ok := m.Draft()
	require.True(t, ok)
	assert.Equal(t, []string{"p1", "p2"}, draft.ProductIDs)
	assert.Equal(t, "2024-03-09", draft.OrderDate)
	assert.Equal(t, 10.0, draft.Total)
}

func TestProductRefRejectsScalars(t *testing.T) {
	var ref ProductRef
	assert.Error(t, json.Unmarshal([]byte(`12`), &ref))
}

func TestProductRefRoundTrip(t *testing.T) {
	in := []ProductRef{{ID: "p1"}}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `["p1"]`, string(raw))

	var out []ProductRef
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestSetFieldProductIDs(t *testing.T) {
	var d Draft
	e := Entity{}
	require.NoError(t, e.SetField(&d, "productIds", " p1, ,p2 ,p3"))
	assert.Equal(t, []string{"p1", "p2", "p3"}, d.ProductIDs)
	require.NoError(t, e.SetField(&d, "total", "19.90"))
	assert.Equal(t, 19.9, d.Total)
	assert.ErrorIs(t, e.SetField(&d, "total", "abc"), records.ErrInvalidField)
	assert.ErrorIs(t, e.SetField(&d, "customer", "x"), records.ErrUnknownField)
}

func TestPayloadUsesProductsKey(t *testing.T) {
	raw, err := json.Marshal(Entity{}.Payload(Draft{Total: 5, OrderDate: "2024-01-02", ProductIDs: []string{"p1", "p2"}}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":5,"orderDate":"2024-01-02","products":["p1","p2"]}`, string(raw))

	raw, err = json.Marshal(Entity{}.Payload(Entity{}.NewDraft()))
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":0,"orderDate":"","products":[]}`, string(raw))
}

func TestDraftValidation(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.StartAdd())
	require.NoError(t, m.UpdateDraftField("orderDate", "09/03/2024"))
	err := m.Save(t.Context())
	assert.ErrorIs(t, err, records.ErrInvalidDraft)
	assert.Equal(t, records.ModeEditing, m.Mode())
}
