package reflectx_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfleong/gobatis/reflectx"
)

type address struct {
	City string
}

type person struct {
	Name    string
	Age     int
	Address address
	Tags    []string
}

func TestReadValue(t *testing.T) {
	p := &person{Name: "Ada", Age: 30, Address: address{City: "London"}, Tags: []string{"a", "b"}}

	v, err := reflectx.ReadValue(p, "Name")
	require.NoError(t, err)
	require.Equal(t, "Ada", v)

	v, err = reflectx.ReadValue(p, "name")
	require.NoError(t, err)
	require.Equal(t, "Ada", v, "property resolution must be case-insensitive")

	v, err = reflectx.ReadValue(p, "Address.City")
	require.NoError(t, err)
	require.Equal(t, "London", v)

	v, err = reflectx.ReadValue(p, "Tags[0]")
	require.NoError(t, err)
	require.Equal(t, "a", v)
}

func TestWriteValue(t *testing.T) {
	p := &person{}
	require.NoError(t, reflectx.WriteValue(p, "Name", "Grace"))
	require.Equal(t, "Grace", p.Name)

	require.NoError(t, reflectx.WriteValue(p, "Address.City", "Paris"))
	require.Equal(t, "Paris", p.Address.City)
}

func TestUnknownPropertyFails(t *testing.T) {
	p := &person{}
	_, err := reflectx.ReadValue(p, "DoesNotExist")
	require.Error(t, err)
}

func TestIsCollection(t *testing.T) {
	require.True(t, reflectx.IsCollection(reflect.TypeOf([]string{})))
	require.False(t, reflectx.IsCollection(reflect.TypeOf(person{})))
}
