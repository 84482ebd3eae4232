package compiler_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thunklang/thunk/internal/compiler"
	"github.com/thunklang/thunk/internal/parser"
	"github.com/thunklang/thunk/internal/types"
	"github.com/thunklang/thunk/internal/vm"
	"github.com/thunklang/thunk/testutil"
)

// executeMain runs src through the whole pipeline and returns main's
// extracted result.
func executeMain(t *testing.T, src string) vm.Result {
	t.Helper()
	result, err := tryExecuteMain(src)
	require.NoError(t, err)
	return result
}

func tryExecuteMain(src string) (vm.Result, error) {
	mod, err := parser.ParseModule(src)
	if err != nil {
		return vm.Result{}, err
	}
	env := types.NewEnv()
	if err := types.TypecheckModule(env, mod); err != nil {
		return vm.Result{}, err
	}
	assembly, err := compiler.NewLinker().Compile(mod)
	if err != nil {
		return vm.Result{}, err
	}
	machine := vm.New()
	machine.AddAssembly(assembly)
	return machine.RunMain()
}

func TestPrimitives(t *testing.T) {
	assert.Equal(t, vm.IntResult(15), executeMain(t, "main = primIntAdd 10 5"))
	assert.Equal(t, vm.IntResult(1), executeMain(t, "main = primIntSubtract 7 (primIntMultiply 2 3)"))
	assert.Equal(t, vm.IntResult(5), executeMain(t, "main = primIntDivide 10 (primIntRemainder 6 4)"))
	assert.Equal(t, vm.DoubleResult(1.5), executeMain(t, "main = primDoubleDivide 3. 2."))
}

func TestComparisonBuildsBool(t *testing.T) {
	src := `data Bool = True | False;
main = primIntLT 1 2`
	assert.Equal(t, vm.ConstructorResult(0), executeMain(t, src))
}

func TestFunctions(t *testing.T) {
	src := `mult2 x = primIntMultiply x 2;
main = mult2 10`
	assert.Equal(t, vm.IntResult(20), executeMain(t, src))

	src2 := `mult2 x = primIntMultiply x 2;
add x y = primIntAdd y x;
main = add 3 (mult2 10)`
	assert.Equal(t, vm.IntResult(23), executeMain(t, src2))
}

func TestCase(t *testing.T) {
	src := `mult2 x = primIntMultiply x 2;
main = case [mult2 123, 0] of {
    : x xs -> x;
    [] -> 10 }`
	assert.Equal(t, vm.IntResult(246), executeMain(t, src))
}

func TestCaseNestedNumberPattern(t *testing.T) {
	src := `mult2 x = primIntMultiply x 2;
main = case [mult2 123, 0] of {
    : 246 xs -> primIntAdd 0 246;
    [] -> 10 }`
	assert.Equal(t, vm.IntResult(246), executeMain(t, src))
}

func TestCaseNestedPatternFallsThrough(t *testing.T) {
	src := `mult2 x = primIntMultiply x 2;
main = case [mult2 123, 0] of {
    : 246 [] -> primIntAdd 0 246;
    : x xs -> 20;
    [] -> 10 }`
	assert.Equal(t, vm.IntResult(20), executeMain(t, src))
}

func TestCaseNonExhaustiveFails(t *testing.T) {
	src := `main = case [] of { : x xs -> x }`
	_, err := tryExecuteMain(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VM002")
}

func TestDataTypes(t *testing.T) {
	src := `data Bool = True | False;
test = False;
main = case test of {
    False -> primIntAdd 0 0;
    True -> primIntAdd 1 0 }`
	assert.Equal(t, vm.IntResult(0), executeMain(t, src))
}

func TestTypeclassesKnownTypes(t *testing.T) {
	src := `data Bool = True | False;
class Test a where { test :: a -> Int };
instance Test Int where { test x = x };
instance Test Bool where { test x = case x of {
    True -> 1;
    False -> 0 } };
main = primIntSubtract (test (primIntAdd 5 0)) (test True)`
	assert.Equal(t, vm.IntResult(4), executeMain(t, src))
}

func TestTypeclassesDictionaryPassing(t *testing.T) {
	src := `data Bool = True | False;
class Test a where { test :: a -> Int };
instance Test Int where { test x = x };
instance Test Bool where { test x = case x of {
    True -> 1;
    False -> 0 } };
testAdd y = primIntAdd (test (primIntAdd 5 0)) (test y);
main = testAdd True`
	assert.Equal(t, vm.IntResult(6), executeMain(t, src))
}

func TestInstanceWithConstraint(t *testing.T) {
	src := `data Bool = True | False;
class Eq a where { (==) :: a -> a -> Bool };
instance Eq Int where { (==) x y = primIntEQ x y };
instance Eq a => Eq [a] where { (==) xs ys = case xs of {
    : x xs2 -> case ys of {
        : y ys2 -> case x == y of {
            True -> xs2 == ys2;
            False -> False };
        [] -> False };
    [] -> case ys of {
        : y ys2 -> False;
        [] -> True } } };
main = [1,2,3,4] == [1,2,3]`
	assert.Equal(t, vm.ConstructorResult(1), executeMain(t, src))
}

func TestLetBindings(t *testing.T) {
	src := `main = let { double x = primIntMultiply x 2 } in double 21`
	assert.Equal(t, vm.IntResult(42), executeMain(t, src))
}

func TestLetCapturesEnclosingParameter(t *testing.T) {
	src := `scale k = let { apply x = primIntMultiply k x } in apply 10;
main = scale 4`
	assert.Equal(t, vm.IntResult(40), executeMain(t, src))
}

func TestMutuallyRecursiveLet(t *testing.T) {
	// even/odd by mutual recursion, far enough to cross both definitions.
	src := `data Bool = True | False;
main = let {
    even n = case primIntEQ n 0 of { True -> 1; False -> odd (primIntSubtract n 1) };
    odd n = case primIntEQ n 0 of { True -> 0; False -> even (primIntSubtract n 1) } }
in even 10`
	assert.Equal(t, vm.IntResult(1), executeMain(t, src))
}

func TestLambdaLiteral(t *testing.T) {
	src := `apply f x = f x;
main = apply (\n -> primIntAdd n 1) 41`
	assert.Equal(t, vm.IntResult(42), executeMain(t, src))
}

func TestPartialApplication(t *testing.T) {
	src := `apply f x = f x;
main = apply (primIntSubtract 50) 8`
	assert.Equal(t, vm.IntResult(42), executeMain(t, src))
}

func TestRightSection(t *testing.T) {
	// (+ 2) desugars to \# -> # + 2.
	src := `(+) x y = primIntAdd x y;
apply f x = f x;
main = apply (+ 2) 40`
	assert.Equal(t, vm.IntResult(42), executeMain(t, src))
}

func TestUnaryNegate(t *testing.T) {
	src := `main = primIntAdd 50 (- 8)`
	assert.Equal(t, vm.IntResult(42), executeMain(t, src))
}

func TestLazinessSkipsUnusedDivergence(t *testing.T) {
	// loop never terminates if forced; taking the head of the list must not
	// force the tail.
	src := `loop x = loop x;
main = case [primIntAdd 40 2, loop 0] of {
    : x xs -> x;
    [] -> 0 }`
	assert.Equal(t, vm.IntResult(42), executeMain(t, src))
}

func TestConversionPrimitives(t *testing.T) {
	assert.Equal(t, vm.DoubleResult(3), executeMain(t, "main = primIntToDouble 3"))
	assert.Equal(t, vm.IntResult(3), executeMain(t, "main = primDoubleToInt (primDoubleAdd 1.5 1.5)"))
}

func TestTuples(t *testing.T) {
	src := `main = case (1, primIntAdd 2 3) of { (a, b) -> primIntAdd a b }`
	assert.Equal(t, vm.IntResult(6), executeMain(t, src))
}

func TestMultipleAssemblies(t *testing.T) {
	env := types.NewEnv()
	link := compiler.NewLinker()
	machine := vm.New()

	lib, err := parser.ParseModule(`add x y = primIntAdd x y;
double x = primIntMultiply x 2`)
	require.NoError(t, err)
	require.NoError(t, types.TypecheckModule(env, lib))
	libAssembly, err := link.Compile(lib)
	require.NoError(t, err)
	machine.AddAssembly(libAssembly)

	main, err := parser.ParseModule(`main = add 1 (double 3)`)
	require.NoError(t, err)
	require.NoError(t, types.TypecheckModule(env, main))
	mainAssembly, err := link.Compile(main)
	require.NoError(t, err)
	machine.AddAssembly(mainAssembly)

	result, err := machine.RunMain()
	require.NoError(t, err)
	assert.Equal(t, vm.IntResult(7), result)
}

func TestMissingMain(t *testing.T) {
	_, err := tryExecuteMain("notMain = 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VM003")
}

func TestMainMustBeNullary(t *testing.T) {
	_, err := tryExecuteMain("main x = x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VM003")
}

func TestExamplePrograms(t *testing.T) {
	cases := map[string]vm.Result{
		"arithmetic.hs":  vm.IntResult(43),
		"lists.hs":       vm.IntResult(15),
		"typeclasses.hs": vm.IntResult(1),
	}
	for name, want := range cases {
		t.Run(name, func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join("..", "..", "examples", name))
			require.NoError(t, err)
			assert.Equal(t, want, executeMain(t, string(src)))
		})
	}
}

func TestResultTreeGolden(t *testing.T) {
	result := executeMain(t, "main = [primIntAdd 10 5, primIntMultiply 2 3]")
	testutil.CompareWithGolden(t, "results", "list_of_sums", result)
}
