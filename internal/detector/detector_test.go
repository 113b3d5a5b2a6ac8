package detector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	terr "tcshaper/internal/errors"
)

func stubRuntime(t *testing.T, missing map[string]bool, euid int) {
	t.Helper()
	origLook, origUID := lookPath, geteuid
	t.Cleanup(func() { lookPath, geteuid = origLook, origUID })

	lookPath = func(name string) (string, error) {
		if missing[name] {
			return "", errors.New("executable file not found in $PATH")
		}
		return "/usr/sbin/" + name, nil
	}
	geteuid = func() int { return euid }
}

func TestValidateRuntime(t *testing.T) {
	stubRuntime(t, nil, 1000)
	assert.NoError(t, ValidateRuntime(nil))
}

func TestValidateRuntimeMissingTc(t *testing.T) {
	stubRuntime(t, map[string]bool{"tc": true}, 0)

	err := ValidateRuntime(nil)
	require.Error(t, err)
	assert.Equal(t, terr.CategoryCritical, terr.CategoryOf(err, terr.CategoryOptional))
	assert.Contains(t, err.Error(), `missing command "tc"`)
}

func stubModules(t *testing.T, loaded map[string]bool, loadable map[string]bool) *[]string {
	t.Helper()
	origLoaded, origProbe := moduleLoaded, modprobe
	t.Cleanup(func() { moduleLoaded, modprobe = origLoaded, origProbe })

	var probed []string
	moduleLoaded = func(name string) bool { return loaded[name] }
	modprobe = func(name string) ([]byte, error) {
		probed = append(probed, name)
		if loadable[name] {
			loaded[name] = true
			return nil, nil
		}
		return []byte("modprobe: FATAL: Module " + name + " not found."), errors.New("exit status 1")
	}
	return &probed
}

func TestValidateKernelModules(t *testing.T) {
	probed := stubModules(t,
		map[string]bool{"sch_htb": true},
		map[string]bool{"sch_netem": true},
	)

	require.NoError(t, ValidateKernelModules(nil, ShapingModules))
	assert.Equal(t, []string{"sch_netem", "cls_u32"}, *probed)
}

func TestValidateKernelModulesRequiredMissing(t *testing.T) {
	stubModules(t, map[string]bool{}, map[string]bool{"sch_htb": true})

	err := ValidateKernelModules(nil, ShapingModules)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sch_netem")
	assert.NotContains(t, err.Error(), "cls_u32")
}
